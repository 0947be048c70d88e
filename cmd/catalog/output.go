package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/pagination"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// render writes v as JSON or YAML, or hands a table to fill for the default
// format.
func render(w io.Writer, format string, v any, fill func(table *tablewriter.Table)) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(v)
	default:
		table := tablewriter.NewWriter(w)
		fill(table)
		return table.Render()
	}
}

func renderAlbum(w io.Writer, format string, album *catalog.Album) error {
	return render(w, format, album, func(table *tablewriter.Table) {
		table.Header("Property", "Value")
		_ = table.Append("ID", album.ID)
		_ = table.Append("Name", album.Name)
		_ = table.Append("Artists", artistNames(album.Artists))
		_ = table.Append("Type", album.AlbumType)
		_ = table.Append("Released", album.ReleaseDate)
		_ = table.Append("Label", album.Label)
		_ = table.Append("Tracks", strconv.Itoa(album.TotalTracks))
		_ = table.Append("Popularity", strconv.Itoa(album.Popularity))
		_ = table.Append("URI", album.URI)
	})
}

func renderAlbums(w io.Writer, format string, ids []string, albums []*catalog.Album) error {
	return render(w, format, albums, func(table *tablewriter.Table) {
		table.Header("ID", "Name", "Artists", "Released", "Tracks")
		for i, album := range albums {
			if album == nil {
				_ = table.Append(ids[i], "(not found)", "", "", "")
				continue
			}
			_ = table.Append(album.ID, album.Name, artistNames(album.Artists), album.ReleaseDate, strconv.Itoa(album.TotalTracks))
		}
	})
}

func renderTracks(w io.Writer, format string, tracks []catalog.Track, v any) error {
	return render(w, format, v, func(table *tablewriter.Table) {
		table.Header("#", "ID", "Name", "Artists", "Duration", "Explicit")
		for _, t := range tracks {
			explicit := ""
			if t.Explicit {
				explicit = "yes"
			}
			_ = table.Append(strconv.Itoa(t.TrackNumber), t.ID, t.Name, artistNames(t.Artists), formatDuration(t.DurationMs), explicit)
		}
	})
}

func renderTrackPage(w io.Writer, format string, page *pagination.Page[catalog.Track]) error {
	if err := renderTracks(w, format, page.Items, page); err != nil {
		return err
	}
	if format == "table" {
		fmt.Fprintln(w, windowSummary(page))
	}
	return nil
}

// windowSummary describes which slice of the collection a page holds.
func windowSummary(page *pagination.Page[catalog.Track]) string {
	if len(page.Items) == 0 {
		return fmt.Sprintf("No tracks at offset %d (total %d)", page.Offset, page.Total)
	}
	return fmt.Sprintf("Tracks %d-%d of %d", page.Offset+1, page.Offset+len(page.Items), page.Total)
}

func artistNames(artists []catalog.ArtistRef) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// formatDuration renders milliseconds as m:ss.
func formatDuration(ms int) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

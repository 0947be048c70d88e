package main

import (
	"context"

	"github.com/Sternrassler/catalog-client/pkg/pagination"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newAlbumCommand creates the album command group
func newAlbumCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "album",
		Aliases: []string{"albums"},
		Short:   "Look up albums",
		Long:    "Fetch albums and album tracks from the catalog",
	}

	cmd.AddCommand(newAlbumGetCommand(v))
	cmd.AddCommand(newAlbumListCommand(v))
	cmd.AddCommand(newAlbumTracksCommand(v))

	return cmd
}

// withStack resolves settings and runs fn with a connected client stack.
func withStack(ctx context.Context, v *viper.Viper, fn func(s settings, st *stack) error) error {
	s, err := loadSettings(v)
	if err != nil {
		return err
	}
	st, err := newStack(ctx, s)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(s, st)
}

func newAlbumGetCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get ALBUM_ID",
		Short: "Get album details",
		Long:  "Display a single album with its artists and release information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStack(ctx, v, func(s settings, st *stack) error {
				album, err := st.client.Album(ctx, args[0])
				if err != nil {
					return err
				}
				return renderAlbum(cmd.OutOrStdout(), s.Output, album)
			})
		},
	}
}

func newAlbumListCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list ALBUM_ID...",
		Short: "Get several albums",
		Long:  "Display several albums in the given order; any number of ids is accepted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStack(ctx, v, func(s settings, st *stack) error {
				albums, err := st.client.Albums(ctx, args)
				if err != nil {
					return err
				}
				return renderAlbums(cmd.OutOrStdout(), s.Output, args, albums)
			})
		},
	}
	cmd.Flags().Int("max-concurrency", 0, "parallel batch requests (default from config)")
	_ = v.BindPFlag("max_concurrency", cmd.Flags().Lookup("max-concurrency"))
	return cmd
}

func newAlbumTracksCommand(v *viper.Viper) *cobra.Command {
	var (
		offset int
		limit  int
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "tracks ALBUM_ID",
		Short: "List album tracks",
		Long:  "List one window of an album's tracks, or every track with --all",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStack(ctx, v, func(s settings, st *stack) error {
				if all {
					tracks, err := st.client.AllAlbumTracks(ctx, args[0])
					if err != nil {
						return err
					}
					return renderTracks(cmd.OutOrStdout(), s.Output, tracks, tracks)
				}

				page, err := st.client.AlbumTracks(ctx, args[0], pagination.Window{Offset: offset, Limit: limit})
				if err != nil {
					return err
				}
				return renderTrackPage(cmd.OutOrStdout(), s.Output, page)
			})
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "index of the first track")
	cmd.Flags().IntVar(&limit, "limit", 0, "tracks per window (1-50, default 20)")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every track")

	return cmd
}

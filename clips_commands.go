package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/treefix50/soundboard/internal/board"
	"github.com/treefix50/soundboard/internal/clip"
)

func newClipsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clips",
		Short: "List and edit the clips on the board",
	}
	cmd.AddCommand(newClipsListCommand(ctx))
	cmd.AddCommand(newClipsAddCommand(ctx))
	cmd.AddCommand(newClipsAddFileCommand(ctx))
	cmd.AddCommand(newClipsRemoveCommand(ctx))
	cmd.AddCommand(newClipsVolumeCommand(ctx))
	return cmd
}

func newClipsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the board",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBoard(cmd.Context(), func(env *boardEnv) error {
				out := cmd.OutOrStdout()
				clips := env.board.Clips.Clips()
				if len(clips) == 0 {
					fmt.Fprintln(out, "No clips yet. Add one with `soundboard clips add`.")
					return nil
				}
				fmt.Fprintln(out, renderClips(clips, keysByIndex(env.board.Bindings, len(clips))))
				return nil
			})
		},
	}
}

func keysByIndex(b *board.Bindings, registryLen int) map[int][]string {
	keys := make(map[int][]string)
	for _, k := range b.Bound() {
		if index, ok := b.Lookup(k, registryLen); ok {
			keys[index] = append(keys[index], k.Label())
		}
	}
	return keys
}

func renderClips(clips []clip.Clip, keys map[int][]string) string {
	rows := make([][]string, 0, len(clips))
	for i, c := range clips {
		source, span := "file "+c.AudioID, ""
		if !c.IsLocal() {
			source = c.VideoID
			span = clip.FormatTimestamp(c.Start) + "-" + clip.FormatTimestamp(c.End)
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			c.DisplayName(i),
			source,
			span,
			strconv.Itoa(c.Volume) + "%",
			strings.Join(keys[i], " "),
		})
	}
	return renderTable(
		[]string{"#", "Name", "Source", "Range", "Volume", "Keys"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func newClipsAddCommand(ctx *commandContext) *cobra.Command {
	var label string
	var volume int

	cmd := &cobra.Command{
		Use:   "add <link> <start> <end>",
		Short: "Add a video segment",
		Long:  "Add a video segment. Start and end accept seconds, mm:ss or hh:mm:ss.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLockedBoard(cmd.Context(), func(env *boardEnv) error {
				c, err := board.NewRemoteClip(args[0], args[1], args[2], label)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("volume") {
					c.Volume = clip.ClampVolume(volume)
				}
				index, err := env.board.Clips.Add(cmd.Context(), c)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s as #%d\n", c.DisplayName(index), index)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&label, "label", "l", "", "Display label")
	cmd.Flags().IntVar(&volume, "volume", clip.DefaultVolume, "Volume 0-100")
	return cmd
}

func newClipsAddFileCommand(ctx *commandContext) *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "add-file <path>",
		Short: "Upload a local audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read audio file: %w", err)
			}
			name := filepath.Base(args[0])
			file := clip.AudioFile{
				Label:    label,
				Name:     name,
				MIMEType: mime.TypeByExtension(filepath.Ext(name)),
				Size:     int64(len(data)),
				Data:     data,
			}
			return ctx.withLockedBoard(cmd.Context(), func(env *boardEnv) error {
				c, index, err := env.board.AddFile(cmd.Context(), file)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s as #%d\n", c.DisplayName(index), index)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&label, "label", "l", "", "Display label (defaults to the file name)")
	return cmd
}

func newClipsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <index>",
		Aliases: []string{"rm"},
		Short:   "Remove a clip",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return ctx.withLockedBoard(cmd.Context(), func(env *boardEnv) error {
				removed, err := env.board.Remove(cmd.Context(), index)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "No clip at #%d\n", index)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed #%d\n", index)
				return nil
			})
		},
	}
}

func newClipsVolumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "volume <index> <0-100>",
		Short: "Set a clip's volume",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil {
				return fmt.Errorf("invalid volume %q", args[1])
			}
			return ctx.withLockedBoard(cmd.Context(), func(env *boardEnv) error {
				if err := env.board.Clips.SetVolume(cmd.Context(), index, value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Volume of #%d set to %d%%\n", index, clip.ClampVolume(value))
				return nil
			})
		},
	}
}

func parseIndex(raw string) (int, error) {
	index, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid clip index %q", raw)
	}
	return index, nil
}

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/floppyworm/ghost/internal/application/ghost"
	"github.com/floppyworm/ghost/internal/domain/replay"
	"github.com/floppyworm/ghost/internal/infrastructure/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored ghosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		ghosts, err := store.AllGhosts()
		if err != nil {
			return err
		}
		if len(ghosts) == 0 {
			fmt.Println("No ghosts stored.")
			return nil
		}

		levels := make([]string, 0, len(ghosts))
		for level := range ghosts {
			levels = append(levels, level)
		}
		sort.Strings(levels)

		fmt.Printf("%-20s %10s %8s %10s  %s\n", "LEVEL", "BEST (ms)", "FRAMES", "DURATION", "RECORDED")
		for _, level := range levels {
			meta := ghosts[level]
			fmt.Printf("%-20s %10d %8d %10d  %s\n",
				level, meta.CompletionTime, meta.FrameCount, meta.Duration, meta.RecordedAt)
		}
		return nil
	},
}

var showFrames bool

var showCmd = &cobra.Command{
	Use:   "show <level>",
	Short: "Show one ghost's record, optionally decoding its frames",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		record, err := store.Record(args[0])
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("no ghost stored for %q", args[0])
		}

		fmt.Printf("level:        %s\n", record.MapKey)
		fmt.Printf("map hash:     %s\n", record.MapHash)
		fmt.Printf("best time:    %d ms\n", record.CompletionTime)
		fmt.Printf("recorded at:  %s\n", record.RecordedAt)
		fmt.Printf("encoding:     %s (%s)\n", record.Encoding, record.Compression)
		fmt.Printf("frames:       %d over %d ms, %d tracked points\n",
			record.FrameCount, record.Duration, record.SegmentCount)

		if !showFrames {
			return nil
		}
		stream := ghost.Stream{Transform: ghost.GzipTransform{}}
		buf, err := stream.Decompress(record.Frames, record.Compression)
		if err != nil {
			return err
		}
		frames, err := replay.DecodeFrames(buf, record.FrameCount, record.Payload().Layout())
		if err != nil {
			return err
		}
		for _, f := range frames {
			fmt.Printf("  t=%6dms", f.TimestampMs)
			for _, p := range f.Points {
				fmt.Printf("  (%.1f, %.1f)", p.X, p.Y)
			}
			fmt.Println()
		}
		return nil
	},
}

var checkLevelFile string

var checkCmd = &cobra.Command{
	Use:   "check <level>",
	Short: "Check a stored ghost against a level definition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		record, err := store.Record(args[0])
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("no ghost stored for %q", args[0])
		}

		loader := config.NewLoader(".")
		level, err := loader.LoadLevel(checkLevelFile)
		if err != nil {
			return err
		}
		current := ghost.MapHash(level.Geometry())
		if current == record.MapHash {
			fmt.Println("OK: ghost matches the level geometry")
			return nil
		}
		fmt.Printf("STALE: stored hash %s, level hash %s; this ghost would be invalidated on load\n",
			record.MapHash, current)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <level>",
	Short: "Delete one level's ghost",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if !store.HasGhost(args[0]) {
			return fmt.Errorf("no ghost stored for %q", args[0])
		}
		if err := store.DeleteGhost(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted ghost for %q.\n", args[0])
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored ghost",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.ClearAllGhosts(); err != nil {
			return err
		}
		fmt.Println("Cleared all ghosts.")
		return nil
	},
}

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Report the total bytes used by ghost storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		size, err := store.StorageSize()
		if err != nil {
			return err
		}
		fmt.Printf("%d bytes\n", size)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showFrames, "frames", false, "decode and print every frame")
	checkCmd.Flags().StringVar(&checkLevelFile, "level-file", "", "level JSON file id (without .json) to hash")
	_ = checkCmd.MarkFlagRequired("level-file")

	rootCmd.AddCommand(listCmd, showCmd, checkCmd, deleteCmd, clearCmd, sizeCmd)
}

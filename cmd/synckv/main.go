package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/synckv/store/filestore"
)

var (
	configPath string
	storeKind  string
	dataDir    string
	redisAddr  string
	pgDSN      string
	cacheName  string
)

var errNotFound = errors.New("key not found")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "synckv",
		Short:        "Inspect and edit a synckv partition",
		Long:         "Reads and writes a synckv partition through the cache, so every change is committed to the configured store before the command exits.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "", "Store kind (file, redis, postgres, memory)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "dir", "", "Data directory for the file store")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "Redis address")
	rootCmd.PersistentFlags().StringVar(&pgDSN, "pg-dsn", "", "Postgres DSN")
	rootCmd.PersistentFlags().StringVarP(&cacheName, "name", "n", "", "Partition name")

	rootCmd.AddCommand(
		getCmd(),
		setCmd(),
		removeCmd(),
		keysCmd(),
		importCmd(),
		compactCmd(),
	)
	return rootCmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			v, ok := s.GetItem(args[0])
			if !ok {
				return fmt.Errorf("%s: %w", args[0], errNotFound)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openCache(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.SetItem(args[0], args[1]); err != nil {
				_ = cleanup()
				return err
			}
			return cleanup()
		},
	}
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <key>...",
		Aliases: []string{"rm"},
		Short:   "Remove keys",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openCache(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range args {
				if err := s.RemoveItem(k); err != nil {
					_ = cleanup()
					return err
				}
			}
			return cleanup()
		},
	}
}

func keysCmd() *cobra.Command {
	var withValues bool

	cmd := &cobra.Command{
		Use:     "keys",
		Aliases: []string{"ls"},
		Short:   "List keys in insertion order",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			keys, err := s.Keys()
			if err != nil {
				return err
			}
			if !withValues {
				for k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tVALUE")
			for k := range keys {
				v, _ := s.GetItem(k)
				fmt.Fprintf(w, "%s\t%s\n", k, v)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&withValues, "values", "v", false, "Print values next to keys")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Set every key of a flat YAML mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var entries map[string]string
			if err := yaml.Unmarshal(data, &entries); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			s, cleanup, err := openCache(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(entries))
			for k := range entries {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if err := s.SetItem(k, entries[k]); err != nil {
					_ = cleanup()
					return err
				}
			}
			if err := cleanup(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d keys\n", len(keys))
			return nil
		},
	}
}

func compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Rewrite a file store log without dead records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store != "file" {
				return fmt.Errorf("compact needs the file store, configured store is %q", cfg.Store)
			}
			fs, err := filestore.New(filestore.Config{Dir: cfg.File.Dir, Sync: cfg.File.Sync, CompactMin: -1})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			conn, err := fs.Open(ctx, cfg.Cache.Name)
			if err != nil {
				return err
			}
			defer conn.Close(ctx)

			fc := conn.(*filestore.Conn)
			dead := fc.Dead()
			if err := fc.Compact(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: dropped %d dead records\n", fs.Path(cfg.Cache.Name), dead)
			return nil
		},
	}
}

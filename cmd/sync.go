package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/haierkeys/artifact-git-sync/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type syncFlags struct {
	config     string
	repository string
	direction  string
}

func init() {
	syncEnv := new(syncFlags)

	var syncCommand = &cobra.Command{
		Use:   "sync -r repository_id [-c config_file] [--direction export|import|bidirectional]",
		Short: "Run one repository sync and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := domain.SyncDirection(syncEnv.direction)
			if !direction.Valid() {
				return fmt.Errorf("invalid direction %q", syncEnv.direction)
			}

			runEnv := &runFlags{config: syncEnv.config}
			if err := resolveConfig(runEnv); err != nil {
				return err
			}

			a, _, err := bootstrap(runEnv.config, "")
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
				defer cancel()
				if err := a.Shutdown(ctx); err != nil {
					bootstrapLogger.Warn("app shutdown", zap.Error(err))
				}
			}()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.Config().GetContextTimeout())
			defer cancel()

			conn, err := a.RepositoryService.Connection(ctx, syncEnv.repository)
			if err != nil {
				return err
			}

			res := a.SyncService.SyncRepository(ctx, conn, direction)
			out, err := sonic.ConfigStd.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(out))
			if !res.Success {
				return fmt.Errorf("sync failed: %s", res.Error)
			}
			return nil
		},
	}

	rootCmd.AddCommand(syncCommand)
	fs := syncCommand.Flags()
	fs.StringVarP(&syncEnv.config, "config", "c", "", "config file")
	fs.StringVarP(&syncEnv.repository, "repository", "r", "", "repository id")
	fs.StringVar(&syncEnv.direction, "direction", string(domain.DirectionBidirectional), "sync direction")
	_ = syncCommand.MarkFlagRequired("repository")
}

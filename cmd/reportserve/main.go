package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mouselip/chess-archive-parser/internal/reportserver"
)

const (
	commandUse               = "reportserve"
	commandShortDescription  = "Serve generated opponent reports over HTTP"
	envPrefix                = "CHESSARCHIVE_SERVER"
	flagHostName             = "host"
	flagHostDescription      = "Host interface for the HTTP server"
	flagPortName             = "port"
	flagPortDescription      = "Port for the HTTP server"
	flagReportsDirName       = "reports-dir"
	flagReportsDirDesc       = "Directory holding the report files to serve"
	defaultHost              = "127.0.0.1"
	defaultPort              = 8080
	defaultReportsDirectory  = "reports"
	shutdownTimeout          = 5 * time.Second
	errMessageLoggerCreate   = "create logger"
	errMessageRouterCreate   = "create router"
	errMessageListenAndServe = "listen and serve"
	logMessageStartingServer = "starting report server"
	logMessageServerStopped  = "report server stopped"
	logFieldAddress          = "address"
	logFieldReportsDirectory = "reports_directory"
)

func main() {
	cobra.CheckErr(newReportServeCommand().Execute())
}

func newReportServeCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE:  runReportServeCommand,
	}

	command.Flags().String(flagHostName, defaultHost, flagHostDescription)
	command.Flags().Int(flagPortName, defaultPort, flagPortDescription)
	command.Flags().String(flagReportsDirName, defaultReportsDirectory, flagReportsDirDesc)

	bindFlagToViper(command, flagHostName)
	bindFlagToViper(command, flagPortName)
	bindFlagToViper(command, flagReportsDirName)

	cobra.OnInitialize(configureEnvironment)

	return command
}

func bindFlagToViper(command *cobra.Command, flagName string) {
	cobra.CheckErr(viper.BindPFlag(flagName, command.Flags().Lookup(flagName)))
}

func configureEnvironment() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func runReportServeCommand(*cobra.Command, []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", errMessageLoggerCreate, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	reportsDirectory := viper.GetString(flagReportsDirName)
	router, routerErr := reportserver.NewRouter(reportserver.RouterConfig{
		ReportsDirectory: reportsDirectory,
		Logger:           logger,
	})
	if routerErr != nil {
		return fmt.Errorf("%s: %w", errMessageRouterCreate, routerErr)
	}

	address := fmt.Sprintf("%s:%d", viper.GetString(flagHostName), viper.GetInt(flagPortName))
	logger.Info(logMessageStartingServer,
		zap.String(logFieldAddress, address),
		zap.String(logFieldReportsDirectory, reportsDirectory))

	applicationContext, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	httpServer := &http.Server{Addr: address, Handler: router}

	group, groupContext := errgroup.WithContext(applicationContext)
	group.Go(func() error {
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("%s: %w", errMessageListenAndServe, serveErr)
		}
		return nil
	})
	group.Go(func() error {
		<-groupContext.Done()
		shutdownContext, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownContext)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info(logMessageServerStopped)
	return nil
}

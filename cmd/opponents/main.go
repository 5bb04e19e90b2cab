package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Mouselip/chess-archive-parser/internal/chesscom"
	"github.com/Mouselip/chess-archive-parser/internal/harvest"
)

const (
	commandUse              = "opponents"
	commandShortDescription = "Harvest a chess.com player's archives and classify the opponents faced"
	envPrefix               = "CHESSARCHIVE"
	flagUsernameName        = "username"
	flagUsernameDescription = "chess.com username to track (prompted for when omitted)"
	flagArchiveDirName      = "archive-dir"
	flagArchiveDirDesc      = "Directory holding the downloaded PGN archives"
	flagOutputDirName       = "output-dir"
	flagOutputDirDesc       = "Directory receiving the report files"
	flagUserAgentName       = "user-agent"
	flagUserAgentDesc       = "User-Agent header sent with every API request"
	defaultArchiveDirectory = "archives"
	defaultOutputDirectory  = "reports"
	usernamePrompt          = "Enter chess.com username: "
	errMessageLoggerCreate  = "create logger"
	errMessageClientCreate  = "create API client"
	errMessageEmptyUsername = "a chess.com username is required"
	errMessageReadUsername  = "read username"
	logMessageRunStarting   = "starting harvest run"
	logFieldRunID           = "run_id"
	logFieldTrackedUsername = "tracked_username"
)

func main() {
	cobra.CheckErr(newOpponentsCommand().Execute())
}

func newOpponentsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE:  runOpponentsCommand,
	}

	command.Flags().String(flagUsernameName, "", flagUsernameDescription)
	command.Flags().String(flagArchiveDirName, defaultArchiveDirectory, flagArchiveDirDesc)
	command.Flags().String(flagOutputDirName, defaultOutputDirectory, flagOutputDirDesc)
	command.Flags().String(flagUserAgentName, "", flagUserAgentDesc)

	bindFlagToViper(command, flagUsernameName)
	bindFlagToViper(command, flagArchiveDirName)
	bindFlagToViper(command, flagOutputDirName)
	bindFlagToViper(command, flagUserAgentName)

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

func runOpponentsCommand(*cobra.Command, []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", errMessageLoggerCreate, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger = logger.With(zap.String(logFieldRunID, uuid.NewString()))

	trackedUsername, usernameErr := resolveTrackedUsername(viper.GetString(flagUsernameName))
	if usernameErr != nil {
		return usernameErr
	}

	client, clientErr := chesscom.NewClient(chesscom.Config{UserAgent: viper.GetString(flagUserAgentName)})
	if clientErr != nil {
		return fmt.Errorf("%s: %w", errMessageClientCreate, clientErr)
	}

	logger.Info(logMessageRunStarting, zap.String(logFieldTrackedUsername, trackedUsername))

	applicationContext, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application := harvest.NewApplication(client, logger)
	return application.Run(applicationContext, harvest.Config{
		TrackedUsername:  trackedUsername,
		ArchiveDirectory: viper.GetString(flagArchiveDirName),
		OutputDirectory:  viper.GetString(flagOutputDirName),
	})
}

func resolveTrackedUsername(flagValue string) (string, error) {
	normalized := normalizeUsername(flagValue)
	if normalized != "" {
		return normalized, nil
	}

	fmt.Print(usernamePrompt)
	reader := bufio.NewReader(os.Stdin)
	line, readErr := reader.ReadString('\n')
	if readErr != nil && line == "" {
		return "", fmt.Errorf("%s: %w", errMessageReadUsername, readErr)
	}
	normalized = normalizeUsername(line)
	if normalized == "" {
		return "", errors.New(errMessageEmptyUsername)
	}
	return normalized, nil
}

func normalizeUsername(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

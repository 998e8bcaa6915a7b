package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"ssupscaler/internal/config"
	"ssupscaler/internal/execshell"
	"ssupscaler/internal/logging"
	"ssupscaler/internal/tools"
	"ssupscaler/internal/ui"
)

const (
	applicationNameConstant                 = "ssupscaler"
	applicationShortDescriptionConstant     = "Batch image and video upscaler driving Real-ESRGAN and FFmpeg"
	applicationLongDescriptionConstant      = "ssupscaler queues images and videos, upscales them with realesrgan-ncnn-vulkan and reassembles videos with FFmpeg, keeping the original audio track."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to the settings file (YAML)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level (debug, info, warn, error)."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
)

// Version is stamped at build time with -ldflags "-X ssupscaler/cmd/cli.Version=...".
var Version = "dev"

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *config.Loader
	loggerFactory         *logging.LoggerFactory
	logger                *zap.Logger
	configuration         config.Configuration
	configurationMetadata config.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string

	locatorProvider  func() *tools.Locator
	commandRunner    execshell.CommandRunner
	prompter         ui.Prompter
	terminalDetector func() bool
	scratchRoot      string
	clock            func() time.Time
	signalContext    func(parent context.Context) (context.Context, context.CancelFunc)
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	application := &Application{
		configurationLoader: config.NewDefaultLoader(),
		loggerFactory:       logging.NewLoggerFactory(),
		logger:              zap.NewNop(),
		configuration:       config.DefaultConfiguration(),
		locatorProvider:     defaultLocator,
		commandRunner:       execshell.NewOSCommandRunner(),
		prompter:            ui.NewTerminalPrompter(nil, nil),
		terminalDetector: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
		clock: time.Now,
		signalContext: func(parent context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		},
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	cobraCommand.SetVersionTemplate(applicationNameConstant + " version: {{.Version}}\n")

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	cobraCommand.AddCommand(
		application.newUpscaleCommand(),
		application.newCheckCommand(),
		application.newModelsCommand(),
		application.newInfoCommand(),
		application.newSettingsCommand(),
		application.newVersionCommand(),
	)

	application.rootCommand = cobraCommand
	return application
}

func defaultLocator() *tools.Locator {
	workingDirectory, err := os.Getwd()
	if err != nil {
		workingDirectory = "."
	}
	return tools.NewLocator(workingDirectory)
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	configuration, loadedConfiguration, loadError := application.configurationLoader.Load(application.configurationFilePath)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configuration = configuration
	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		logging.LogLevel(application.configuration.LogLevel),
		logging.LogFormat(application.configuration.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)
	return nil
}

// settingsPath is where settings are written: the explicit --config path,
// else the file that was loaded, else the per-user default.
func (application *Application) settingsPath() (string, error) {
	if len(application.configurationFilePath) > 0 {
		return application.configurationFilePath, nil
	}
	if len(application.configurationMetadata.ConfigFileUsed) > 0 {
		return application.configurationMetadata.ConfigFileUsed, nil
	}
	return config.DefaultPath()
}

func (application *Application) saveSettings(settings config.Settings) (string, error) {
	path, err := application.settingsPath()
	if err != nil {
		return "", err
	}
	configuration := application.configuration
	configuration.Settings = settings
	if err := config.Save(path, configuration); err != nil {
		return "", err
	}
	application.configuration = configuration
	application.logger.Info("settings saved", zap.String(configurationFileFieldConstant, path))
	return path, nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/deemkeen/thrive/cue"
	"github.com/deemkeen/thrive/db"
	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/engine"
	"github.com/deemkeen/thrive/logging"
	"github.com/deemkeen/thrive/mastodon"
	"github.com/deemkeen/thrive/metrics"
	"github.com/deemkeen/thrive/settings"
	"github.com/deemkeen/thrive/timeline"
	"github.com/deemkeen/thrive/ui"
	"github.com/deemkeen/thrive/ui/common"
	"github.com/deemkeen/thrive/util"
	"github.com/deemkeen/thrive/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const logFileName = "thrive.log"

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "thrive",
		Short:        "An accessible Mastodon client for the terminal.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd.Context())
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")

	cmd.AddCommand(newServeCmd(), newLoginCmd(), newLogoutCmd(), newEventsCmd(), newVersionCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Keep the session live without the terminal UI and serve the local feed bridge.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeadless(cmd.Context())
		},
	}
}

func newLoginCmd() *cobra.Command {
	var instance, token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify an access token and remember it.",
		Example: `
thrive login --instance mastodon.social --token <access token>
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return login(cmd.Context(), instance, token)
		},
	}
	cmd.Flags().StringVar(&instance, "instance", "", "instance URL, e.g. https://mastodon.social")
	cmd.Flags().StringVar(&token, "token", "", "access token issued by the instance")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	var instance string
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return logout(instance)
		},
	}
	cmd.Flags().StringVar(&instance, "instance", "", "instance to log out of; defaults to the latest login")
	return cmd
}

func newEventsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the most recent live stream events, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listEvents(cmd.OutOrStdout(), limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(util.GetNameAndVersion())
		},
	}
}

func logConfig(conf *util.AppConfig) logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = conf.Conf.LogLevel
	cfg.Format = conf.Conf.LogFormat
	return cfg
}

func openDB(conf *util.AppConfig) (*db.DB, error) {
	path := conf.Conf.Database
	if path != ":memory:" {
		path = util.ResolveFilePath(path)
	}
	database, err := db.GetDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return database, nil
}

// credentials picks the account to use: THRIVE_ACCESS_TOKEN first, then the
// stored login for the configured instance, then the latest stored login.
func credentials(conf *util.AppConfig, database *db.DB) (*domain.Credentials, error) {
	if conf.Conf.AccessToken != "" {
		instance, err := util.NormalizeInstance(conf.Conf.Instance)
		if err != nil {
			return nil, fmt.Errorf("THRIVE_ACCESS_TOKEN needs an instance: %w", err)
		}
		return &domain.Credentials{Instance: instance, AccessToken: conf.Conf.AccessToken}, nil
	}

	var err error
	var creds *domain.Credentials
	if conf.Conf.Instance != "" {
		instance, nerr := util.NormalizeInstance(conf.Conf.Instance)
		if nerr != nil {
			return nil, nerr
		}
		err, creds = database.ReadCredentials(instance)
	} else {
		err, creds = database.ReadLatestCredentials()
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("not logged in, run: thrive login --instance <url> --token <token>")
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	return creds, nil
}

func newClient(conf *util.AppConfig, creds *domain.Credentials) *mastodon.Client {
	return mastodon.NewClient(mastodon.Config{
		Instance:          creds.Instance,
		AccessToken:       creds.AccessToken,
		RequestsPerSecond: conf.Conf.RequestsPerSecond,
		Burst:             conf.Conf.Burst,
		StreamIdleTimeout: conf.StreamIdleTimeout(),
	})
}

func newCuePlayer(conf *util.AppConfig) (*cue.Player, []string) {
	log := logging.Component("main")
	root := util.ResolveDir(conf.Conf.SoundsDir)
	bell := &cue.BellSink{W: os.Stderr}

	var sink cue.Sink = bell
	if conf.Conf.PlayCommand != "" {
		cmdSink, err := cue.NewCommandSink(conf.Conf.PlayCommand)
		if err != nil {
			log.Warn().Err(err).Str("command", conf.Conf.PlayCommand).Msg("play command unusable, falling back to the bell")
		} else {
			sink = cmdSink
		}
	}

	packs, err := cue.Packs(root)
	if err != nil || len(packs) == 0 {
		packs = []string{util.DefaultSoundPack}
	}
	return cue.NewPlayer(root, sink).WithFallback(bell), packs
}

func sessionOptions(conf *util.AppConfig, database *db.DB, collector metrics.MetricsCollector) engine.Options {
	return engine.Options{
		Limit:           conf.Conf.TimelineLimit,
		OptimisticPosts: conf.Conf.OptimisticPosts,
		Stream: engine.SupervisorConfig{
			MaxBackoff:       conf.StreamMaxBackoff(),
			MaxAttempts:      conf.Conf.StreamMaxAttempts,
			FailureThreshold: conf.Conf.StreamFailureThreshold,
		},
		Metrics:     collector,
		Journal:     database,
		JournalKeep: conf.Conf.StreamJournalKeep,
		Cache:       database,
	}
}

func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return reg, metrics.NewCollector(reg)
}

func startBridge(ctx context.Context, conf *util.AppConfig, store *timeline.Store, me *domain.Account, reg *prometheus.Registry, database *db.DB) {
	srv := web.NewServer(conf, store, me, reg).WithEvents(database)
	go func() {
		if err := srv.Run(ctx); err != nil {
			log := logging.Component("main")
			log.Error().Err(err).Msg("local bridge stopped")
		}
	}()
}

func closeSession(s *engine.Session) {
	if err := s.Close(); err != nil {
		log := logging.Component("main")
		log.Warn().Err(err).Msg("saving timelines failed")
	}
}

func runClient(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conf, err := util.ReadConfFrom(configPath)
	if err != nil {
		return err
	}

	configDir, err := util.GetConfigDir()
	if err != nil {
		return err
	}
	logPath := conf.Conf.LogFile
	if logPath == "" {
		logPath = filepath.Join(configDir, logFileName)
	}
	logFile, err := logging.OpenFile(logConfig(conf), logPath)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	log := logging.Component("main")

	database, err := openDB(conf)
	if err != nil {
		return err
	}
	defer database.Close()

	creds, err := credentials(conf, database)
	if err != nil {
		return err
	}

	prefs, err := settings.Open(configDir)
	if err != nil {
		return err
	}
	player, packs := newCuePlayer(conf)
	if err := prefs.ApplyCues(player); err != nil {
		log.Warn().Err(err).Msg("sound pack not loaded")
	}
	common.SetHighContrast(prefs.HighContrast())

	reg, collector := newRegistry()
	bridge := ui.NewBridge()
	store := timeline.NewStore()
	store.Observe(bridge.Observe)

	opts := sessionOptions(conf, database, collector)
	opts.Notifier = bridge
	opts.Cues = player

	client := newClient(conf, creds)
	host := util.InstanceHost(client.Instance())
	fmt.Fprintf(os.Stderr, "Connecting to %s...\n", host)
	session, err := engine.Open(ctx, client, store, opts)
	if err != nil {
		return err
	}
	session.Start(ctx)
	defer closeSession(session)

	if conf.Conf.HttpPort > 0 {
		startBridge(ctx, conf, store, session.Me, reg, database)
	}

	m := ui.NewModel(ui.Config{
		Store:    store,
		Actions:  common.NewSessionActions(session),
		Cues:     player,
		Settings: prefs,
		Packs:    packs,
		Me:       session.Me,
		Host:     host,
	})
	return ui.Run(m, bridge)
}

func runHeadless(ctx context.Context) error {
	conf, err := util.ReadConfFrom(configPath)
	if err != nil {
		return err
	}
	logging.Init(logConfig(conf))
	log := logging.Component("main")
	log.Debug().Msg(util.PrettyPrint(conf))

	if conf.Conf.HttpPort <= 0 {
		return errors.New("serve needs httpPort to be set")
	}

	database, err := openDB(conf)
	if err != nil {
		return err
	}
	defer database.Close()

	creds, err := credentials(conf, database)
	if err != nil {
		return err
	}

	reg, collector := newRegistry()
	store := timeline.NewStore()
	session, err := engine.Open(ctx, newClient(conf, creds), store, sessionOptions(conf, database, collector))
	if err != nil {
		return err
	}
	session.Start(ctx)
	defer closeSession(session)

	srv := web.NewServer(conf, store, session.Me, reg).WithEvents(database)
	log.Info().Str("account", session.Me.Acct).Msg("session live")
	return srv.Run(ctx)
}

func login(ctx context.Context, instance, token string) error {
	conf, err := util.ReadConfFrom(configPath)
	if err != nil {
		return err
	}
	logging.Init(logConfig(conf))

	if instance == "" {
		instance = conf.Conf.Instance
	}
	instance, err = util.NormalizeInstance(instance)
	if err != nil {
		return err
	}

	creds := &domain.Credentials{Instance: instance, AccessToken: token, CreatedAt: time.Now()}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	me, err := newClient(conf, creds).VerifyCredentials(ctx)
	if err != nil {
		return fmt.Errorf("verifying token: %w", err)
	}
	creds.Username = me.Acct

	database, err := openDB(conf)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.SaveCredentials(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Printf("Logged in as %s on %s\n", me.Acct, util.InstanceHost(instance))
	return nil
}

func logout(instance string) error {
	conf, err := util.ReadConfFrom(configPath)
	if err != nil {
		return err
	}
	logging.Init(logConfig(conf))

	database, err := openDB(conf)
	if err != nil {
		return err
	}
	defer database.Close()

	if instance == "" {
		err, creds := database.ReadLatestCredentials()
		if errors.Is(err, sql.ErrNoRows) {
			fmt.Println("Not logged in.")
			return nil
		}
		if err != nil {
			return err
		}
		instance = creds.Instance
	} else if instance, err = util.NormalizeInstance(instance); err != nil {
		return err
	}

	if err := database.DeleteCredentials(instance); err != nil {
		return fmt.Errorf("deleting credentials: %w", err)
	}
	fmt.Printf("Logged out of %s\n", util.InstanceHost(instance))
	return nil
}

func listEvents(out io.Writer, limit int) error {
	conf, err := util.ReadConfFrom(configPath)
	if err != nil {
		return err
	}
	logging.Init(logConfig(conf))

	database, err := openDB(conf)
	if err != nil {
		return err
	}
	defer database.Close()

	err, events := database.ReadStreamEvents(limit)
	if err != nil {
		return fmt.Errorf("reading stream journal: %w", err)
	}
	if len(*events) == 0 {
		fmt.Fprintln(out, "No stream events recorded.")
		return nil
	}
	for _, ev := range *events {
		fmt.Fprintf(out, "%s  %-13s  %s\n", ev.ReceivedAt.Local().Format(util.DateTimeFormat()), ev.Kind, ev.ItemId)
	}
	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/arnoldcano/analyzemyrun/internal"
	"github.com/arnoldcano/analyzemyrun/internal/config"
	"github.com/arnoldcano/analyzemyrun/internal/logging"
	"github.com/arnoldcano/analyzemyrun/pkg"

	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    false,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sentryDSN,
		SentryServerName: "analyzemyrun-service",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	jwtSecret := os.Getenv("AMR_JWT_SECRET")
	if jwtSecret == "" {
		log.Errorf("jwt secret not set, use AMR_JWT_SECRET env var to set it")
	}

	redisPassword := os.Getenv("AMR_REDIS_PASS")
	if redisPassword == "" {
		log.Errorf("redis password not set. use AMR_REDIS_PASS")
	}

	seedAdminPassword := os.Getenv("AMR_SEED_ADMIN_PASSWORD")
	seedDemoPassword := os.Getenv("AMR_SEED_DEMO_PASSWORD")
	if cfg.SeedBootstrapUsers && (seedAdminPassword == "" || seedDemoPassword == "") {
		if cfg.Environment == "production" || cfg.Environment == "prod" {
			log.Fatalf("seed passwords not set. use AMR_SEED_ADMIN_PASSWORD and AMR_SEED_DEMO_PASSWORD")
		}
		log.Warnln("seed passwords not set, using development defaults")
		seedAdminPassword = "admin-dev-pass"
		seedDemoPassword = "demo-dev-pass"
	}

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	if honeycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			VersionInfo:             versionInfo,
			JWTSecret:               jwtSecret,
			RedisPassword:           redisPassword,
			SeedAdminPassword:       seedAdminPassword,
			SeedDemoPassword:        seedDemoPassword,
			HoneycombTracingEnabled: honeycombEnabled,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(ctx, cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	if err := server.GracefulShutdown(); err != nil {
		log.Errorf("graceful shutdown: %s", err)
	}
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return pkg.BytesToString(stdout), nil
}

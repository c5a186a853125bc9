package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/synctube/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	serverURL = configVar[string]{
		envKey:       "PROBE_SERVER_URL",
		flagKey:      "server-url",
		defaultValue: "http://localhost:8000",
	}
	roomID = configVar[string]{
		envKey:       "PROBE_ROOM_ID",
		flagKey:      "room-id",
		defaultValue: "",
	}
	createRoom = configVar[bool]{
		envKey:       "PROBE_CREATE_ROOM",
		flagKey:      "create-room",
		defaultValue: false,
	}
	displayName = configVar[string]{
		envKey:       "PROBE_DISPLAY_NAME",
		flagKey:      "display-name",
		defaultValue: "probe",
	}
	statusHost = configVar[string]{
		envKey:       "PROBE_STATUS_HOST",
		flagKey:      "status-host",
		defaultValue: "127.0.0.1",
	}
	statusPort = configVar[int]{
		envKey:       "PROBE_STATUS_PORT",
		flagKey:      "status-port",
		defaultValue: 8090,
	}
	logLevel = configVar[string]{
		envKey:       "PROBE_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	logBackend = configVar[string]{
		envKey:       "PROBE_LOG_BACKEND",
		flagKey:      "log-backend",
		defaultValue: "std",
	}
	reconnectDelay = configVar[time.Duration]{
		envKey:       "PROBE_RECONNECT_DELAY",
		flagKey:      "reconnect-delay",
		defaultValue: 2 * time.Second,
	}
	reportInterval = configVar[time.Duration]{
		envKey:       "PROBE_REPORT_INTERVAL",
		flagKey:      "report-interval",
		defaultValue: 5 * time.Second,
	}
	loadTimeout = configVar[time.Duration]{
		envKey:       "PROBE_LOAD_TIMEOUT",
		flagKey:      "load-timeout",
		defaultValue: 15 * time.Second,
	}
	driftThreshold = configVar[float64]{
		envKey:       "PROBE_DRIFT_THRESHOLD",
		flagKey:      "drift-threshold",
		defaultValue: 2,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	journalTTL = configVar[time.Duration]{
		envKey:       "PROBE_JOURNAL_TTL",
		flagKey:      "journal-ttl",
		defaultValue: 24 * time.Hour,
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(serverURL.flagKey, serverURL.defaultValue, "Room server base url")
	pflag.String(roomID.flagKey, roomID.defaultValue, "Room to join")
	pflag.Bool(createRoom.flagKey, createRoom.defaultValue, "Create a new room instead of joining one")
	pflag.String(displayName.flagKey, displayName.defaultValue, "Display name in the room")
	pflag.String(statusHost.flagKey, statusHost.defaultValue, "Status server host")
	pflag.Int(statusPort.flagKey, statusPort.defaultValue, "Status server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(logBackend.flagKey, logBackend.defaultValue, "Logging backend (std or zap)")
	pflag.Duration(reconnectDelay.flagKey, reconnectDelay.defaultValue, "Delay before reconnecting")
	pflag.Duration(reportInterval.flagKey, reportInterval.defaultValue, "Sync report interval")
	pflag.Duration(loadTimeout.flagKey, loadTimeout.defaultValue, "Player load timeout")
	pflag.Float64(driftThreshold.flagKey, driftThreshold.defaultValue, "Drift in seconds that triggers a correction")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host, journal is disabled when empty")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Duration(journalTTL.flagKey, journalTTL.defaultValue, "Journal entries ttl")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(serverURL.flagKey, serverURL.envKey)
	viper.BindEnv(roomID.flagKey, roomID.envKey)
	viper.BindEnv(createRoom.flagKey, createRoom.envKey)
	viper.BindEnv(displayName.flagKey, displayName.envKey)
	viper.BindEnv(statusHost.flagKey, statusHost.envKey)
	viper.BindEnv(statusPort.flagKey, statusPort.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(logBackend.flagKey, logBackend.envKey)
	viper.BindEnv(reconnectDelay.flagKey, reconnectDelay.envKey)
	viper.BindEnv(reportInterval.flagKey, reportInterval.envKey)
	viper.BindEnv(loadTimeout.flagKey, loadTimeout.envKey)
	viper.BindEnv(driftThreshold.flagKey, driftThreshold.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(journalTTL.flagKey, journalTTL.envKey)

	viper.SetDefault(serverURL.flagKey, serverURL.defaultValue)
	viper.SetDefault(roomID.flagKey, roomID.defaultValue)
	viper.SetDefault(createRoom.flagKey, createRoom.defaultValue)
	viper.SetDefault(displayName.flagKey, displayName.defaultValue)
	viper.SetDefault(statusHost.flagKey, statusHost.defaultValue)
	viper.SetDefault(statusPort.flagKey, statusPort.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(logBackend.flagKey, logBackend.defaultValue)
	viper.SetDefault(reconnectDelay.flagKey, reconnectDelay.defaultValue)
	viper.SetDefault(reportInterval.flagKey, reportInterval.defaultValue)
	viper.SetDefault(loadTimeout.flagKey, loadTimeout.defaultValue)
	viper.SetDefault(driftThreshold.flagKey, driftThreshold.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(journalTTL.flagKey, journalTTL.defaultValue)

	config := &app.AppConfig{
		ServerURL:      viper.GetString(serverURL.flagKey),
		RoomID:         viper.GetString(roomID.flagKey),
		CreateRoom:     viper.GetBool(createRoom.flagKey),
		DisplayName:    viper.GetString(displayName.flagKey),
		StatusHost:     viper.GetString(statusHost.flagKey),
		StatusPort:     viper.GetInt(statusPort.flagKey),
		LogLevel:       viper.GetString(logLevel.flagKey),
		LogBackend:     viper.GetString(logBackend.flagKey),
		ReconnectDelay: viper.GetDuration(reconnectDelay.flagKey),
		ReportInterval: viper.GetDuration(reportInterval.flagKey),
		LoadTimeout:    viper.GetDuration(loadTimeout.flagKey),
		DriftThreshold: viper.GetFloat64(driftThreshold.flagKey),
		RedisHost:      viper.GetString(redisHost.flagKey),
		RedisPort:      viper.GetInt(redisPort.flagKey),
		RedisPassword:  viper.GetString(redisPassword.flagKey),
		JournalTTL:     viper.GetDuration(journalTTL.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting probe with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/leonelquinteros/gotext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"

	"deriv-alert-bot/config"
	"deriv-alert-bot/internal/database"
	"deriv-alert-bot/internal/engine"
	"deriv-alert-bot/internal/feed"
	"deriv-alert-bot/internal/notify"
	"deriv-alert-bot/internal/registry"
	"deriv-alert-bot/internal/telegram"
)

type BotMetrics struct {
	CommandsProcessed    prometheus.Counter
	TicksProcessed       prometheus.Counter
	AlertsFired          prometheus.Counter
	NotificationFailures prometheus.Counter
	ActiveAlerts         prometheus.Gauge
}

var (
	metrics = NewBotMetrics()
)

func init() {
	config.InitConfig()
	setupLogging()
}

func NewBotMetrics() *BotMetrics {
	metrics := &BotMetrics{
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deriv",
			Subsystem: "alert_bot",
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		TicksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deriv",
			Subsystem: "alert_bot",
			Name:      "ticks_processed",
			Help:      "The total number of tick events evaluated",
		}),
		AlertsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deriv",
			Subsystem: "alert_bot",
			Name:      "alerts_fired",
			Help:      "The total number of alerts fired",
		}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deriv",
			Subsystem: "alert_bot",
			Name:      "notification_failures",
			Help:      "The total number of failed channel deliveries",
		}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "deriv",
			Subsystem: "alert_bot",
			Name:      "active_alerts",
			Help:      "The current number of active alerts",
		}),
	}

	prometheus.MustRegister(metrics.CommandsProcessed)
	prometheus.MustRegister(metrics.TicksProcessed)
	prometheus.MustRegister(metrics.AlertsFired)
	prometheus.MustRegister(metrics.NotificationFailures)
	prometheus.MustRegister(metrics.ActiveAlerts)

	return metrics
}

func main() {
	gotext.Configure("locales", strings.ToLower(config.GetString("lang")), "default")

	err := database.InitDB(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDB()

	LoadMetricsFromDB()

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          config.GetString("telegram_bot_token"),
		Debug:          config.GetBool("debug"),
		UpdatesTimeout: 60,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	reg := registry.New(database.AlertStore{})
	saved, err := database.GetAllAlerts()
	if err != nil {
		log.Fatalf("Failed to load saved alerts: %v", err)
	}
	reg.Load(saved)
	log.Infof("Rehydrated %d alerts from database", len(saved))

	emailSender := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     config.GetString("smtp_host"),
		Port:     config.GetInt("smtp_port"),
		From:     config.GetString("email_address"),
		Password: config.GetString("email_password"),
	})
	dispatcher := notify.NewDispatcher(emailSender, bot)

	feedConn := feed.New(feed.DefaultConfig(config.GetString("deriv_api_url")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The very first connection failure is fatal; later drops are recovered
	// with backoff inside the feed.
	if err := feedConn.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to price feed: %v", err)
	}
	go feedConn.Run(ctx)

	eng := engine.New(engine.Config{
		Tolerance:         config.GetFloat64("alert_tolerance"),
		KeepSubscriptions: config.GetBool("keep_subscriptions"),
	}, reg, feedConn, dispatcher, engine.Metrics{
		TicksProcessed:       metrics.TicksProcessed,
		AlertsFired:          metrics.AlertsFired,
		NotificationFailures: metrics.NotificationFailures,
		ActiveAlerts:         metrics.ActiveAlerts,
	})
	go eng.Run(ctx)

	bot.SetAlertService(eng)

	updates, err := bot.GetUpdatesChannel()
	if err != nil {
		log.Fatalf("Failed to get updates channel: %v", err)
	}
	go handleUpdates(bot, updates)

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			SaveMetricsToDB()
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		cancel()
		SaveMetricsToDB()
		log.Println("Metrics saved, shutting down...")
		os.Exit(0)
	}()

	if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
		log.Fatalf("Failed to start metrics and health server: %v", err)
	}
}

func setupLogging() {
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting deriv alert bot...")
}

func handleUpdates(bot *telegram.Bot, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil || !update.Message.IsCommand() {
			log.Debug("Received non-command update")
			continue
		}

		handleCommand(bot, update)
	}
}

func handleCommand(bot *telegram.Bot, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	err := bot.SendMessage(telegram.Message{
		ChatID:    update.Message.Chat.ID,
		Text:      bot.HandleUpdate(update),
		MessageID: update.Message.MessageID,
	})

	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	} else {
		metrics.CommandsProcessed.Inc()
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}

func LoadMetricsFromDB() {
	commandsProcessed, _ := database.GetMetric("commands_processed")
	ticksProcessed, _ := database.GetMetric("ticks_processed")
	alertsFired, _ := database.GetMetric("alerts_fired")
	notificationFailures, _ := database.GetMetric("notification_failures")

	metrics.CommandsProcessed.Add(commandsProcessed)
	metrics.TicksProcessed.Add(ticksProcessed)
	metrics.AlertsFired.Add(alertsFired)
	metrics.NotificationFailures.Add(notificationFailures)

	log.Println("Metrics loaded from database.")
}

func SaveMetricsToDB() {
	database.SaveMetric("commands_processed", GetMetricValue(metrics.CommandsProcessed))
	database.SaveMetric("ticks_processed", GetMetricValue(metrics.TicksProcessed))
	database.SaveMetric("alerts_fired", GetMetricValue(metrics.AlertsFired))
	database.SaveMetric("notification_failures", GetMetricValue(metrics.NotificationFailures))

	log.Println("Metrics saved to database.")
}

func GetMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Printf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}

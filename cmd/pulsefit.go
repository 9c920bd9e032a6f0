package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rivo/tview"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
	"tinygo.org/x/bluetooth"

	"github.com/lowaak/pulsefit/internal/bt"
	"github.com/lowaak/pulsefit/internal/engine"
	"github.com/lowaak/pulsefit/internal/hr"
	"github.com/lowaak/pulsefit/internal/progression"
	"github.com/lowaak/pulsefit/internal/store"
	"github.com/lowaak/pulsefit/internal/ui"
)

func main() {
	pflag.Bool("simulate", false, "use the simulated heart-rate source")
	pflag.String("device", "", "heart-rate monitor address to connect to")
	pflag.String("db", "", "database path (default ~/.pulsefit/data.db)")
	pflag.String("log", "", "log file (default ~/.pulsefit/pulsefit.log)")
	pflag.Parse()

	configDir := configDir()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.SetEnvPrefix("PULSEFIT")
	viper.AutomaticEnv()
	must("bind flags", viper.BindPFlags(pflag.CommandLine))
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			must("read config", err)
		}
	}

	logPath := viper.GetString("log")
	if logPath == "" {
		logPath = filepath.Join(configDir, "pulsefit.log")
	}
	logger := log.New(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    5, // megabytes
		MaxBackups: 2,
	}, "", log.LstdFlags)
	logger.Println("pulsefit starting")

	dbPath := viper.GetString("db")
	if dbPath == "" {
		p, err := store.DefaultPath()
		must("resolve database path", err)
		dbPath = p
	}
	st, err := store.Open(dbPath)
	must("open database", err)
	defer st.Close()

	must("seed achievements", st.SeedAchievements(achievementCatalog()))

	source, deviceAddress, cleanup := buildSource(logger, configDir)
	defer cleanup()

	settler := engine.NewSettler(st, time.Local, logger)
	manager := engine.NewManager(st, source, settler, time.Local, deviceAddress, logger)
	defer manager.Shutdown()

	app := tview.NewApplication()
	dashboard := ui.NewDashboard(app, manager, logger)
	if err := dashboard.Run(); err != nil {
		logger.Printf("UI error: %v", err)
		fmt.Fprintf(os.Stderr, "pulsefit: %v\n", err)
		os.Exit(1)
	}
	logger.Println("pulsefit exiting")
}

// buildSource picks the heart-rate source: an explicit --device (remembered
// for next time), the remembered device, or the simulator.
func buildSource(logger *log.Logger, configDir string) (source hr.Source, address string, cleanup func()) {
	cleanup = func() {}

	address = viper.GetString("device")
	if address == "" && !viper.GetBool("simulate") {
		address = viper.GetString("preferred_device")
	}

	if viper.GetBool("simulate") || address == "" {
		logger.Println("Using simulated heart-rate source")
		return hr.NewSimulatedSource(logger), "", cleanup
	}

	if viper.GetString("device") != "" && viper.GetString("preferred_device") != address {
		viper.Set("preferred_device", address)
		if err := viper.WriteConfigAs(filepath.Join(configDir, "config.yaml")); err != nil {
			logger.Printf("Could not remember device: %v", err)
		}
	}

	manager := bt.NewAdapterManager(bluetooth.DefaultAdapter, logger)
	must("enable BLE stack", manager.Enable())
	logger.Printf("Using heart-rate monitor %s", address)
	return hr.NewBLESource(manager, logger), address, manager.Shutdown
}

func achievementCatalog() []store.Achievement {
	catalog := make([]store.Achievement, 0, len(progression.Achievements))
	for _, def := range progression.Achievements {
		catalog = append(catalog, store.Achievement{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
		})
	}
	return catalog
}

func configDir() string {
	home, err := os.UserHomeDir()
	must("resolve home directory", err)
	dir := filepath.Join(home, ".pulsefit")
	must("create config directory", os.MkdirAll(dir, 0755))
	return dir
}

func must(action string, err error) {
	if err != nil {
		panic("failed to " + action + ": " + err.Error())
	}
}

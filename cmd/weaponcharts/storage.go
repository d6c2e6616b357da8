package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/weaponcharts/weaponcharts/internal/config"
	"github.com/weaponcharts/weaponcharts/internal/influx"
	"github.com/weaponcharts/weaponcharts/internal/storage"
)

func (a *app) setupStorage() error {
	storageCfg := config.GetStorageConfig()

	primary, err := storage.NewBackend(storageCfg, config.GetDBConfig(), a.zlog.With().Str("component", "storage").Logger())
	if err != nil {
		a.logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	backends := storage.Multi{primary}

	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backupPath := filepath.Join(viper.GetString("logsDir"),
			fmt.Sprintf("%s_influx_%s.lp.gz", AppName, a.start.Format("20060102_150405")))
		backends = append(backends, influx.NewManager(influxCfg,
			a.zlog.With().Str("component", "influx").Logger(), backupPath))
	}

	if err := backends.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend", "error", err)
		return err
	}
	a.backend = backends
	a.logger.Info("Storage initialized", "type", storageCfg.Type, "backends", len(backends))
	return nil
}

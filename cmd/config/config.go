/*
 * FolderSync - Copyright (C) 2022 Zane van Iperen.
 *    Contact: zane@zanevaniperen.com
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

package config

import (
	"context"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vs49688/foldersync/backend"
	"github.com/vs49688/foldersync/registry"
	"github.com/vs49688/foldersync/settings"
)

// DebugEnv raises the log level: 1 for debug, 2 and above for trace plus
// imap wire logging.
const DebugEnv = "FOLDERSYNC_DEBUG"

func DefaultConfig() CliConfig {
	return CliConfig{
		Connection:     DefaultConnectionConfig(),
		SettingsFile:   "foldersync.yaml",
		RegistryDB:     "sources.db",
		CacheDir:       "cache",
		CollectionUID:  "",
		CollectionName: "",
		LogLevel:       "info",
		LogFormat:      "text",
		SyncInterval:   5 * time.Minute,
	}
}

// StoreParameters are the flags shared by every command touching the local
// state.
func (cfg *CliConfig) StoreParameters() []cli.Flag {
	def := DefaultConfig()

	return []cli.Flag{
		&cli.StringFlag{
			Name:        "settings-file",
			Usage:       "path to the account settings file",
			EnvVars:     []string{"FOLDERSYNC_SETTINGS_FILE"},
			Destination: &cfg.SettingsFile,
			Value:       def.SettingsFile,
		},
		&cli.StringFlag{
			Name:        "registry-db",
			Usage:       "path to the source registry database",
			EnvVars:     []string{"FOLDERSYNC_REGISTRY_DB"},
			Destination: &cfg.RegistryDB,
			Value:       def.RegistryDB,
		},
		&cli.StringFlag{
			Name:        "cache-dir",
			Usage:       "directory holding local data of created resources",
			EnvVars:     []string{"FOLDERSYNC_CACHE_DIR"},
			Destination: &cfg.CacheDir,
			Value:       def.CacheDir,
		},
		&cli.StringFlag{
			Name:        "collection-uid",
			Usage:       "uid of the account collection source",
			EnvVars:     []string{"FOLDERSYNC_COLLECTION_UID"},
			Destination: &cfg.CollectionUID,
			Required:    true,
			Value:       def.CollectionUID,
		},
		&cli.StringFlag{
			Name:        "collection-name",
			Usage:       "display name of the account collection source",
			EnvVars:     []string{"FOLDERSYNC_COLLECTION_NAME"},
			Destination: &cfg.CollectionName,
			Value:       def.CollectionName,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "logging level",
			EnvVars:     []string{"FOLDERSYNC_LOG_LEVEL"},
			Destination: &cfg.LogLevel,
			Value:       def.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "logging format (text/json)",
			EnvVars:     []string{"FOLDERSYNC_LOG_FORMAT"},
			Destination: &cfg.LogFormat,
			Value:       def.LogFormat,
		},
	}
}

func (cfg *CliConfig) Parameters() []cli.Flag {
	def := DefaultConfig()

	var flags []cli.Flag
	flags = append(flags, cfg.StoreParameters()...)
	flags = append(flags, cfg.Connection.Parameters()...)
	flags = append(flags, &cli.DurationFlag{
		Name:        "sync-interval",
		Usage:       "interval between folder hierarchy syncs",
		EnvVars:     []string{"FOLDERSYNC_SYNC_INTERVAL"},
		Destination: &cfg.SyncInterval,
		Value:       def.SyncInterval,
	})

	return flags
}

// DebugLevel reads DebugEnv. Anything unparseable is 0.
func DebugLevel() int {
	n, err := strconv.Atoi(os.Getenv(DebugEnv))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SetupLogging applies the log level and format. DebugEnv wins over a
// quieter --log-level.
func (cfg *CliConfig) SetupLogging() {
	if logLevel, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(logLevel)
	}

	switch level := DebugLevel(); {
	case level >= 2:
		log.SetLevel(log.TraceLevel)
	case level == 1 && !log.IsLevelEnabled(log.DebugLevel):
		log.SetLevel(log.DebugLevel)
	}

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func (cfg *CliConfig) OpenSettings() (*settings.File, error) {
	s, err := settings.Load(cfg.SettingsFile)
	if err != nil {
		return nil, err
	}

	if cfg.Connection.HostURL != "" && cfg.Connection.HostURL != s.HostURL() {
		if err := s.SetHostURL(cfg.Connection.HostURL); err != nil {
			return nil, err
		}
	}

	if s.HostURL() == "" {
		return nil, errNoHostURL
	}

	return s, nil
}

func (cfg *CliConfig) Collection() *registry.Source {
	name := cfg.CollectionName
	if name == "" {
		name = cfg.Connection.Username
	}

	return &registry.Source{
		UID:         cfg.CollectionUID,
		DisplayName: name,
	}
}

// Runtime is everything a command needs to drive the backend.
type Runtime struct {
	Backend  *backend.Backend
	Registry *registry.Registry
	Settings *settings.File
}

func (rt *Runtime) Close() {
	if err := rt.Backend.Close(); err != nil {
		log.WithError(err).Warn("backend_close_failed")
	}

	if err := rt.Registry.Close(); err != nil {
		log.WithError(err).Warn("registry_close_failed")
	}

	if err := rt.Settings.Close(); err != nil {
		log.WithError(err).Warn("settings_close_failed")
	}
}

// Open loads the settings and registry and builds the backend on top of
// them.
func (cfg *CliConfig) Open(ctx context.Context) (*Runtime, error) {
	s, err := cfg.OpenSettings()
	if err != nil {
		return nil, err
	}

	factory, err := cfg.Connection.Factory(DebugLevel())
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o700); err != nil {
		return nil, err
	}

	reg, err := registry.Open(ctx, cfg.RegistryDB)
	if err != nil {
		return nil, err
	}

	b, err := backend.New(&backend.Config{
		Collection: cfg.Collection(),
		Registry:   reg,
		Settings:   s,
		Factory:    factory,
		CacheDir:   cfg.CacheDir,
	})
	if err != nil {
		_ = reg.Close()
		return nil, err
	}

	return &Runtime{Backend: b, Registry: reg, Settings: s}, nil
}

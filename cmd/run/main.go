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

package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vs49688/foldersync/backend"
	"github.com/vs49688/foldersync/cmd/config"
	"github.com/vs49688/foldersync/remote"
)

func RegisterCommand(app *cli.App) *cli.App {
	cfg := config.DefaultConfig()
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "run",
		Usage:  "Mirror the remote folder hierarchy until interrupted",
		Flags:  cfg.Parameters(),
		Action: func(context *cli.Context) error { return run(context, &cfg) },
	})
	return app
}

func syncLoop(ctx context.Context, b *backend.Backend, interval time.Duration, done chan<- error) {
	defer close(done)

	if err := b.Populate(ctx); err != nil {
		if remote.IsAuthError(err) {
			done <- err
			return
		}
		log.WithError(err).Warn("initial_sync_failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := b.SyncFolders(ctx)
		switch {
		case err == nil:
			log.Trace("sync_pass_complete")
		case ctx.Err() != nil:
			return
		case remote.IsAuthError(err):
			done <- err
			return
		default:
			log.WithError(err).Warn("sync_pass_failed")
		}
	}
}

func run(cliCtx *cli.Context, cfg *config.CliConfig) error {
	cfg.SetupLogging()

	log.WithFields(log.Fields{
		"host_url":           cfg.Connection.HostURL,
		"auth_method":        cfg.Connection.AuthMethod,
		"username":           cfg.Connection.Username,
		"password_file":      cfg.Connection.PasswordFile,
		"systemd_credential": cfg.Connection.SystemdCredential,
		"keyring_key":        cfg.Connection.KeyringKey,
		"tls_skip_verify":    cfg.Connection.TLSSkipVerify,
		"transport":          cfg.Connection.Transport,
		"debug":              cfg.Connection.Debug,
		"settings_file":      cfg.SettingsFile,
		"registry_db":        cfg.RegistryDB,
		"cache_dir":          cfg.CacheDir,
		"collection_uid":     cfg.CollectionUID,
		"log_level":          cfg.LogLevel,
		"log_format":         cfg.LogFormat,
		"sync_interval":      cfg.SyncInterval,
	}).Info("starting")

	rt, err := cfg.Open(cliCtx.Context)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Settings.Watch(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cliCtx.Context)
	defer cancel()

	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = config.DefaultConfig().SyncInterval
	}

	doneChan := make(chan error, 1)
	go syncLoop(ctx, rt.Backend, interval, doneChan)

	sigchan := make(chan os.Signal, 10)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigchan)

	sigcount := 0
	for {
		select {
		case sig := <-sigchan:
			log.WithFields(log.Fields{"signal": sig, "count": sigcount}).Trace("caught_signal")

			sigcount += 1
			if sigcount > 1 {
				log.WithFields(log.Fields{"signal": sig}).Warn("received_interrupt_force_exit")
				os.Exit(1)
			}
			log.WithFields(log.Fields{"signal": sig}).Info("received_interrupt")

			cancel()
		case err := <-doneChan:
			if err != nil {
				log.WithError(err).Error("sync_terminated")
				return err
			}
			log.Info("sync_terminated")
			return nil
		}
	}
}

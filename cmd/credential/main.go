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

package credential

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vs49688/foldersync/credential"
)

var errEmptySecret = errors.New("empty secret")

type Config struct {
	Key string
}

func (cfg *Config) Parameters() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "keyring-key",
			Usage:       "system keyring entry",
			EnvVars:     []string{"FOLDERSYNC_KEYRING_KEY"},
			Destination: &cfg.Key,
			Required:    true,
		},
	}
}

func RegisterCommand(app *cli.App) *cli.App {
	cfg := &Config{}
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "credential",
		Usage: "Manage passwords and refresh tokens in the system keyring",
		Subcommands: []*cli.Command{
			{
				Name:   "store",
				Usage:  "Read a secret from stdin and store it",
				Flags:  cfg.Parameters(),
				Action: func(context *cli.Context) error { return store(context, cfg) },
			},
			{
				Name:   "delete",
				Usage:  "Delete a stored secret",
				Flags:  cfg.Parameters(),
				Action: func(context *cli.Context) error { return remove(context, cfg) },
			},
		},
	})
	return app
}

func store(ctx *cli.Context, cfg *Config) error {
	line, err := bufio.NewReader(ctx.App.Reader).ReadString('\n')
	if err != nil && line == "" {
		return err
	}

	secret := strings.TrimSpace(line)
	if secret == "" {
		return errEmptySecret
	}

	if err := credential.Set(cfg.Key, secret); err != nil {
		return err
	}

	log.WithField("key", cfg.Key).Info("credential_stored")
	_, err = fmt.Fprintf(ctx.App.Writer, "Pass --keyring-key=%v (FOLDERSYNC_KEYRING_KEY=%v) to use it.\n", cfg.Key, cfg.Key)
	return err
}

func remove(_ *cli.Context, cfg *Config) error {
	if err := credential.Delete(cfg.Key); err != nil {
		return err
	}

	log.WithField("key", cfg.Key).Info("credential_deleted")
	return nil
}

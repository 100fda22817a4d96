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

package oauthlogin

import (
	"github.com/emersion/go-oauthdialog"
	"github.com/emersion/go-sasl"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"github.com/vs49688/foldersync/cmd/config"
	"github.com/vs49688/foldersync/credential"
)

type Config struct {
	OAuth2     config.OAuth2Config
	KeyringKey string
}

func (cfg *Config) Parameters() []cli.Flag {
	return append(cfg.OAuth2.Parameters(), &cli.StringFlag{
		Name:        "keyring-key",
		Usage:       "store the refresh token in this system keyring entry instead of printing it",
		EnvVars:     []string{"FOLDERSYNC_KEYRING_KEY"},
		Destination: &cfg.KeyringKey,
	})
}

func RegisterCommand(app *cli.App) *cli.App {
	cfg := &Config{OAuth2: config.DefaultOAuth2Config()}
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "oauthlogin",
		Usage:  "Generate an OAuth2 Token",
		Flags:  cfg.Parameters(),
		Action: func(context *cli.Context) error { return oauthlogin(context, cfg) },
	})
	return app
}

func oauthlogin(ctx *cli.Context, cfg *Config) error {
	if err := cfg.OAuth2.Resolve(); err != nil {
		return err
	}

	oc := &cfg.OAuth2.Config

	log.WithFields(log.Fields{
		"auth_url":  oc.Endpoint.AuthURL,
		"token_url": oc.Endpoint.TokenURL,
		"client_id": oc.ClientID,
		"scopes":    oc.Scopes,
	}).Info("using_provider")

	code, err := oauthdialog.Open(oc)
	if err != nil {
		return err
	}

	tok, err := oc.Exchange(ctx.Context, code, oauth2.AccessTypeOffline)
	if err != nil {
		return err
	}

	if cfg.KeyringKey != "" {
		if err := credential.Set(cfg.KeyringKey, tok.RefreshToken); err != nil {
			return err
		}

		log.Infof("Your OAuth2 token has been stored in the keyring.\n")
		log.Info()
		log.Infof("You may now pass this via:\n")
		log.Infof("  --auth-method=%v (FOLDERSYNC_AUTH_METHOD=%v), and\n", sasl.OAuthBearer, sasl.OAuthBearer)
		log.Infof("  --keyring-key=%v (FOLDERSYNC_KEYRING_KEY=%v)\n", cfg.KeyringKey, cfg.KeyringKey)
		return nil
	}

	log.Infof("Your OAuth2 token is:\n")
	log.Info()
	log.Infof("  %v\n", tok.RefreshToken)
	log.Info()
	log.Infof("You may now pass this via:\n")
	log.Infof("  --auth-method=%v (FOLDERSYNC_AUTH_METHOD=%v), and\n", sasl.OAuthBearer, sasl.OAuthBearer)
	log.Infof("  --password=<token> (FOLDERSYNC_PASSWORD=<token>)\n")
	log.Info()
	log.Infof("> Keep It Secret, Keep It Safe\n")
	log.Infof(">   - Gandalf\n")

	return nil
}

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
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	OAuth2ProviderGoogle    = "google"
	OAuth2ProviderMicrosoft = "microsoft"
	OAuth2ProviderCustom    = "custom"
)

var oauth2Providers = map[string]struct {
	endpoint oauth2.Endpoint
	scopes   []string
}{
	OAuth2ProviderGoogle: {
		endpoint: endpoints.Google,
		scopes:   []string{"https://mail.google.com/"},
	},
	OAuth2ProviderMicrosoft: {
		endpoint: endpoints.AzureAD("common"),
		scopes:   []string{"https://outlook.office.com/IMAP.AccessAsUser.All", "offline_access"},
	},
}

func DefaultOAuth2Config() OAuth2Config {
	return OAuth2Config{
		Provider:    OAuth2ProviderGoogle,
		RedirectURL: "http://localhost",
	}
}

func (cfg *OAuth2Config) Parameters() []cli.Flag {
	def := DefaultOAuth2Config()

	return []cli.Flag{
		&cli.StringFlag{
			Name:        "oauth2-provider",
			Usage:       "oauth2 provider (google, microsoft, custom)",
			EnvVars:     []string{"FOLDERSYNC_OAUTH2_PROVIDER"},
			Destination: &cfg.Provider,
			Value:       def.Provider,
		},
		&cli.StringFlag{
			Name:        "oauth2-client-id",
			Usage:       "oauth2 client id",
			EnvVars:     []string{"FOLDERSYNC_OAUTH2_CLIENT_ID"},
			Destination: &cfg.ClientID,
			Value:       def.ClientID,
		},
		&cli.StringFlag{
			Name:        "oauth2-client-secret",
			Usage:       "oauth2 client secret",
			EnvVars:     []string{"FOLDERSYNC_OAUTH2_CLIENT_SECRET"},
			Destination: &cfg.ClientSecret,
			Value:       def.ClientSecret,
		},
		&cli.StringFlag{
			Name:        "oauth2-auth-url",
			Usage:       "oauth2 authorization url, custom provider only",
			EnvVars:     []string{"FOLDERSYNC_OAUTH2_AUTH_URL"},
			Destination: &cfg.AuthURL,
			Value:       def.AuthURL,
		},
		&cli.StringFlag{
			Name:        "oauth2-token-url",
			Usage:       "oauth2 token url, custom provider only",
			EnvVars:     []string{"FOLDERSYNC_OAUTH2_TOKEN_URL"},
			Destination: &cfg.TokenURL,
			Value:       def.TokenURL,
		},
		&cli.StringFlag{
			Name:        "oauth2-redirect-url",
			Usage:       "oauth2 redirect url",
			EnvVars:     []string{"FOLDERSYNC_OAUTH2_REDIRECT_URL"},
			Destination: &cfg.RedirectURL,
			Value:       def.RedirectURL,
		},
		&cli.StringFlag{
			Name:        "oauth2-scopes",
			Usage:       "comma-separated oauth2 scopes, overrides the provider defaults",
			EnvVars:     []string{"FOLDERSYNC_OAUTH2_SCOPES"},
			Destination: &cfg.Scopes,
			Value:       def.Scopes,
		},
	}
}

func splitScopes(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
}

// Resolve fills in Config from the provider and flags.
func (cfg *OAuth2Config) Resolve() error {
	if cfg.ClientID == "" {
		return errNoOAuth2ClientID
	}

	provider := strings.ToLower(cfg.Provider)

	var endpoint oauth2.Endpoint
	var scopes []string

	if provider == OAuth2ProviderCustom {
		if cfg.AuthURL == "" || cfg.TokenURL == "" {
			return errNoOAuth2Endpoint
		}
		endpoint = oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL}
	} else {
		p, ok := oauth2Providers[provider]
		if !ok {
			return fmt.Errorf("%w: %v", errUnknownOAuthProvider, cfg.Provider)
		}
		endpoint = p.endpoint
		scopes = p.scopes
	}

	if s := splitScopes(cfg.Scopes); len(s) > 0 {
		scopes = s
	}

	cfg.Config = oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       scopes,
	}

	return nil
}

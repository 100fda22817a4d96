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
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"github.com/vs49688/foldersync/credential"
	"github.com/vs49688/foldersync/remote"
	"github.com/vs49688/foldersync/remote/imapconn"
)

const (
	authMethodNormal = "NORMAL"
	authMethodLogin  = "LOGIN"
)

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		AuthMethod:    "normal",
		TLSSkipVerify: false,
		Transport:     "persistent",
		Debug:         false,
		OAuth2:        DefaultOAuth2Config(),
	}
}

func (cfg *ConnectionConfig) Parameters() []cli.Flag {
	def := DefaultConnectionConfig()

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "host-url",
			Usage:       "imap url, saved to the settings file when given",
			EnvVars:     []string{"FOLDERSYNC_HOST_URL"},
			Destination: &cfg.HostURL,
			Value:       def.HostURL,
		},
		&cli.StringFlag{
			Name:        "auth-method",
			Usage:       "auth method (normal, PLAIN, OAUTHBEARER)",
			EnvVars:     []string{"FOLDERSYNC_AUTH_METHOD"},
			Destination: &cfg.AuthMethod,
			Value:       def.AuthMethod,
		},
		&cli.StringFlag{
			Name:        "username",
			Usage:       "imap username",
			EnvVars:     []string{"FOLDERSYNC_USERNAME"},
			Destination: &cfg.Username,
			Required:    true,
			Value:       def.Username,
		},
		&cli.StringFlag{
			Name:        "password",
			Usage:       "imap password, or oauth2 refresh token",
			EnvVars:     []string{"FOLDERSYNC_PASSWORD"},
			Destination: &cfg.Password,
			Value:       def.Password,
		},
		&cli.StringFlag{
			Name:        "password-file",
			Usage:       "imap password file",
			EnvVars:     []string{"FOLDERSYNC_PASSWORD_FILE"},
			Destination: &cfg.PasswordFile,
			Value:       def.PasswordFile,
		},
		&cli.StringFlag{
			Name:        "systemd-credential",
			Usage:       "name of the systemd credential holding the password",
			EnvVars:     []string{"FOLDERSYNC_SYSTEMD_CREDENTIAL"},
			Destination: &cfg.SystemdCredential,
			Value:       def.SystemdCredential,
		},
		&cli.StringFlag{
			Name:        "keyring-key",
			Usage:       "system keyring entry holding the password",
			EnvVars:     []string{"FOLDERSYNC_KEYRING_KEY"},
			Destination: &cfg.KeyringKey,
			Value:       def.KeyringKey,
		},
		&cli.BoolFlag{
			Name:        "tls-skip-verify",
			Usage:       "skip tls verification",
			EnvVars:     []string{"FOLDERSYNC_TLS_SKIP_VERIFY"},
			Destination: &cfg.TLSSkipVerify,
			Value:       def.TLSSkipVerify,
		},
		&cli.StringFlag{
			Name:        "transport",
			Usage:       "imap transport (persistent, standard)",
			EnvVars:     []string{"FOLDERSYNC_TRANSPORT"},
			Destination: &cfg.Transport,
			Value:       def.Transport,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "display imap debug info",
			EnvVars:     []string{"FOLDERSYNC_IMAP_DEBUG"},
			Destination: &cfg.Debug,
			Value:       def.Debug,
		},
	}

	return append(flags, cfg.OAuth2.Parameters()...)
}

func readCredentialFile(path string) (string, error) {
	pass, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(pass)), nil
}

func readSystemdCredential(name string) (string, error) {
	dir := os.Getenv("CREDENTIALS_DIRECTORY")
	if dir == "" {
		return "", errNoCredentialsDir
	}

	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", errInvalidCredential, name)
	}

	return readCredentialFile(filepath.Join(dir, name))
}

func (cfg *ConnectionConfig) resolvePassword() (string, error) {
	switch {
	case cfg.Password != "":
		return cfg.Password, nil
	case cfg.PasswordFile != "":
		return readCredentialFile(cfg.PasswordFile)
	case cfg.SystemdCredential != "":
		return readSystemdCredential(cfg.SystemdCredential)
	case cfg.KeyringKey != "":
		return credential.Get(cfg.KeyringKey)
	}

	return "", fmt.Errorf("one of \"password\", \"password-file\", \"systemd-credential\" or \"keyring-key\" is required when using %v auth", cfg.AuthMethod)
}

func (cfg *ConnectionConfig) validateUserPass() (string, string, error) {
	if cfg.Username == "" {
		return "", "", fmt.Errorf("\"username\" is required when using %v auth", cfg.AuthMethod)
	}

	password, err := cfg.resolvePassword()
	if err != nil {
		return "", "", err
	}

	return cfg.Username, password, nil
}

func (cfg *ConnectionConfig) resolveAuth() (remote.Authenticator, error) {
	cfg.AuthMethod = strings.ToUpper(cfg.AuthMethod)

	switch cfg.AuthMethod {
	case authMethodNormal, authMethodLogin:
		user, pass, err := cfg.validateUserPass()
		if err != nil {
			return nil, err
		}
		return remote.NewNormalAuthenticator(user, pass), nil
	case sasl.Plain:
		user, pass, err := cfg.validateUserPass()
		if err != nil {
			return nil, err
		}
		return remote.NewSASLAuthenticator(sasl.NewPlainClient("", user, pass)), nil
	case sasl.OAuthBearer:
		user, refreshToken, err := cfg.validateUserPass()
		if err != nil {
			return nil, err
		}

		if err := cfg.OAuth2.Resolve(); err != nil {
			return nil, err
		}

		source := cfg.OAuth2.Config.TokenSource(context.Background(), &oauth2.Token{RefreshToken: refreshToken})
		return remote.NewOAuthBearerAuthenticator(user, source), nil
	}

	return nil, fmt.Errorf("unsupported auth method: %v", cfg.AuthMethod)
}

// Resolve builds the connection factory. debugLevel comes from DebugLevel().
func (cfg *ConnectionConfig) Resolve(debugLevel int) (*imapconn.Factory, error) {
	auth, err := cfg.resolveAuth()
	if err != nil {
		return nil, err
	}

	factory := &imapconn.Factory{
		Auth:  auth,
		Debug: cfg.Debug || debugLevel >= 2,
	}

	if cfg.TLSSkipVerify {
		// #nosec G402
		factory.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return factory, nil
}

// Factory is Resolve wrapped in the configured transport.
func (cfg *ConnectionConfig) Factory(debugLevel int) (remote.Factory, error) {
	factory, err := cfg.Resolve(debugLevel)
	if err != nil {
		return nil, err
	}

	if cfg.Transport != "persistent" {
		return factory, nil
	}

	return &imapconn.PersistentFactory{Factory: factory}, nil
}

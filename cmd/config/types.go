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
	"errors"
	"time"

	"golang.org/x/oauth2"
)

var (
	errNoHostURL            = errors.New("no host url configured")
	errNoCredentialsDir     = errors.New("CREDENTIALS_DIRECTORY is not set")
	errInvalidCredential    = errors.New("invalid credential name")
	errNoOAuth2Endpoint     = errors.New("oauth2 auth and token urls are required for custom providers")
	errNoOAuth2ClientID     = errors.New("oauth2 client id is required")
	errUnknownOAuthProvider = errors.New("unknown oauth2 provider")
)

type OAuth2Config struct {
	Provider     string   `json:"provider"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"-"`
	AuthURL      string   `json:"auth_url"`
	TokenURL     string   `json:"token_url"`
	RedirectURL  string   `json:"redirect_url"`
	Scopes       string   `json:"scopes"`

	Config oauth2.Config `json:"-"`
}

type ConnectionConfig struct {
	HostURL           string       `json:"host_url"`
	AuthMethod        string       `json:"auth_method"`
	Username          string       `json:"username"`
	Password          string       `json:"-"`
	PasswordFile      string       `json:"password_file"`
	SystemdCredential string       `json:"systemd_credential"`
	KeyringKey        string       `json:"keyring_key"`
	TLSSkipVerify     bool         `json:"tls_skip_verify"`
	Transport         string       `json:"transport"`
	Debug             bool         `json:"debug"`
	OAuth2            OAuth2Config `json:"oauth2"`
}

type CliConfig struct {
	Connection     ConnectionConfig `json:"connection"`
	SettingsFile   string           `json:"settings_file"`
	RegistryDB     string           `json:"registry_db"`
	CacheDir       string           `json:"cache_dir"`
	CollectionUID  string           `json:"collection_uid"`
	CollectionName string           `json:"collection_name"`
	LogLevel       string           `json:"log_level"`
	LogFormat      string           `json:"log_format"`
	SyncInterval   time.Duration    `json:"sync_interval"`
}

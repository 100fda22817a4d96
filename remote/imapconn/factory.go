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

package imapconn

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/emersion/go-imap/client"
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/foldersync/remote"
)

// ExtractURL splits an imap:// or imaps:// url into a dialable host:port and
// whether TLS should be used.
func ExtractURL(u *url.URL) (string, bool, error) {
	var defaultPort string
	var useTLS bool
	switch strings.ToLower(u.Scheme) {
	case "imap":
		defaultPort = "143"
		useTLS = false
	case "imaps":
		defaultPort = "993"
		useTLS = true
	default:
		return "", false, errInvalidScheme
	}

	host := u.Hostname()
	port := u.Port()

	if port == "" {
		port = defaultPort
	}

	return net.JoinHostPort(host, port), useTLS, nil
}

func (f *Factory) dial(ctx context.Context, u *url.URL, hostPort string, useTLS bool) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", hostPort)
	if err != nil {
		return nil, err
	}

	if !useTLS {
		return conn, nil
	}

	tlsConfig := &tls.Config{}
	if f.TLSConfig != nil {
		tlsConfig = f.TLSConfig.Clone()
	}

	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = u.Hostname()
	}

	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return tlsConn, nil
}

func (f *Factory) NewConnection(ctx context.Context, hostURL string) (remote.Connection, error) {
	c, err := f.connect(ctx, hostURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (f *Factory) connect(ctx context.Context, hostURL string) (*Connection, error) {
	u, err := url.Parse(hostURL)
	if err != nil {
		return nil, err
	}

	hostPort, useTLS, err := ExtractURL(u)
	if err != nil {
		return nil, err
	}

	logger := log.WithField("host", hostPort)
	logger.WithField("tls", useTLS).Trace("imapconn_dial")

	conn, err := f.dial(ctx, u, hostPort, useTLS)
	if err != nil {
		return nil, &remote.NetworkError{Op: "dial", Err: err}
	}

	c, err := client.New(conn)
	if err != nil {
		_ = conn.Close()
		return nil, &remote.NetworkError{Op: "greeting", Err: err}
	}

	wantCleanup := true
	defer func() {
		if wantCleanup {
			_ = c.Logout()
		}
	}()

	if f.Debug {
		c.SetDebug(os.Stderr)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if f.Auth == nil {
		return nil, &remote.AuthenticationError{Host: hostPort, Err: errNoAuthenticator}
	}

	if err := f.Auth.Authenticate(c); err != nil {
		logger.WithError(err).Warn("imapconn_authentication_failed")
		return nil, &remote.AuthenticationError{Host: hostPort, Err: err}
	}

	logger.Debug("imapconn_connected")

	wantCleanup = false
	return &Connection{c: c, host: hostPort}, nil
}

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

package resource

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vs49688/foldersync/cmd/config"
	"github.com/vs49688/foldersync/registry"
)

var (
	errUnknownKind   = errors.New("unknown resource kind")
	errNoSuchSource  = errors.New("no such source")
	errForeignSource = errors.New("source does not belong to this collection")
)

type createConfig struct {
	config.CliConfig
	Name string
	Kind string
}

type deleteConfig struct {
	config.CliConfig
	UID string
}

func RegisterCommand(app *cli.App) *cli.App {
	create := &createConfig{CliConfig: config.DefaultConfig(), Kind: "calendar"}
	del := &deleteConfig{CliConfig: config.DefaultConfig()}
	list := config.DefaultConfig()

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "resource",
		Usage: "Manage remote folders",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a remote folder and its local source",
				Flags: append(create.Parameters(),
					&cli.StringFlag{
						Name:        "name",
						Usage:       "display name of the new folder",
						Destination: &create.Name,
						Required:    true,
					},
					&cli.StringFlag{
						Name:        "kind",
						Usage:       "folder kind (calendar, tasks, contacts)",
						Destination: &create.Kind,
						Value:       create.Kind,
					},
				),
				Action: func(context *cli.Context) error { return createResource(context, create) },
			},
			{
				Name:  "delete",
				Usage: "Delete a remote folder and its local source",
				Flags: append(del.Parameters(),
					&cli.StringFlag{
						Name:        "uid",
						Usage:       "uid of the source to delete",
						Destination: &del.UID,
						Required:    true,
					},
				),
				Action: func(context *cli.Context) error { return deleteResource(context, del) },
			},
			{
				Name:   "list",
				Usage:  "List the mirrored folders",
				Flags:  list.Parameters(),
				Action: func(context *cli.Context) error { return listResources(context, &list) },
			},
		},
	})
	return app
}

func newSource(name string, kind string) (*registry.Source, error) {
	ext := &registry.BackendExtension{BackendName: "foldersync"}
	src := &registry.Source{DisplayName: name}

	switch strings.ToLower(kind) {
	case "calendar":
		src.Calendar = ext
	case "tasks":
		src.TaskList = ext
	case "contacts":
		src.AddressBook = ext
	default:
		return nil, fmt.Errorf("%w: %v", errUnknownKind, kind)
	}

	return src, nil
}

func createResource(ctx *cli.Context, cfg *createConfig) error {
	cfg.SetupLogging()

	src, err := newSource(cfg.Name, cfg.Kind)
	if err != nil {
		return err
	}

	rt, err := cfg.Open(ctx.Context)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Backend.CreateResource(ctx.Context, src); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"uid":       src.UID,
		"folder_id": rt.Backend.ResourceID(src),
	}).Info("resource_created")

	_, err = fmt.Fprintln(ctx.App.Writer, src.UID)
	return err
}

func deleteResource(ctx *cli.Context, cfg *deleteConfig) error {
	cfg.SetupLogging()

	rt, err := cfg.Open(ctx.Context)
	if err != nil {
		return err
	}
	defer rt.Close()

	src := rt.Registry.Source(cfg.UID)
	if src == nil {
		return fmt.Errorf("%w: %v", errNoSuchSource, cfg.UID)
	}

	if src.Parent != cfg.CollectionUID {
		return fmt.Errorf("%w: %v", errForeignSource, cfg.UID)
	}

	if err := rt.Backend.DeleteResource(ctx.Context, src); err != nil {
		return err
	}

	log.WithField("uid", cfg.UID).Info("resource_deleted")
	return nil
}

func sourceKind(src *registry.Source) string {
	switch {
	case src.TaskList != nil:
		return "tasks"
	case src.Calendar != nil:
		return "calendar"
	case src.AddressBook != nil:
		return "contacts"
	}
	return "-"
}

func listResources(ctx *cli.Context, cfg *config.CliConfig) error {
	cfg.SetupLogging()

	rt, err := cfg.Open(ctx.Context)
	if err != nil {
		return err
	}
	defer rt.Close()

	for _, src := range rt.Registry.Children(cfg.CollectionUID) {
		if _, err := fmt.Fprintf(ctx.App.Writer, "%s\t%s\t%s\t%s\n", src.UID, sourceKind(src), rt.Backend.ResourceID(src), src.DisplayName); err != nil {
			return err
		}
	}

	return nil
}

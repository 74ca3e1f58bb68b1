package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bytedance/sonic"

	config "notegrid.app/notegrid/internal/configs"
	"notegrid.app/notegrid/internal/engine"
	"notegrid.app/notegrid/internal/localstore"
	"notegrid.app/notegrid/internal/remote"
	model "notegrid.app/notegrid/pkg/models"
)

var errNoIdentity = errors.New("no identity saved: run `notegrid identity login <code>` or `notegrid identity register`")

// client is what every client command works with: the engine over the local
// store and the configured API.
type client struct {
	cfg    config.ClientConfig
	store  localstore.Store
	api    *remote.Client
	engine *engine.Engine
}

func openClient(opts ...engine.Option) (*client, error) {
	cfg, err := config.LoadClient(configDir)
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(logLevel, "text")

	store, err := localstore.OpenSQLite(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	api := remote.New(cfg.APIURL, remote.WithTimeout(cfg.RequestTimeout))
	base := []engine.Option{
		engine.WithLogger(logger),
		engine.WithSyncMode(cfg.SyncMode),
		engine.WithDebounce(cfg.Debounce),
		engine.WithRefreshInterval(cfg.RefreshInterval),
		engine.WithRequestTimeout(cfg.RequestTimeout),
	}
	eng := engine.New(func(id string) engine.Remote {
		return api.WithIdentity(id)
	}, store, append(base, opts...)...)

	return &client{cfg: cfg, store: store, api: api, engine: eng}, nil
}

// resume opens the session of the saved identity.
func (c *client) resume(ctx context.Context) error {
	id, err := c.engine.Open(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return errNoIdentity
	}
	return nil
}

// close sends pending changes and releases the local store.
func (c *client) close() {
	c.engine.Shutdown()
	_ = c.store.Close()
}

// withSession runs fn inside a resumed session and closes it afterwards.
func withSession(ctx context.Context, fn func(c *client) error) error {
	c, err := openClient()
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.resume(ctx); err != nil {
		return err
	}
	return fn(c)
}

func printJSON(w io.Writer, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func printTasks(w io.Writer, tasks []model.Task) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tQUADRANT\tKANBAN\tCOLOR\tTITLE\tTAGS")
	for _, t := range tasks {
		done := " "
		if t.Completed {
			done = "x"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, done, orDash(string(t.Quadrant)), orDash(string(t.Kanban)), t.Color, t.Title, strings.Join(t.Tags, ","))
	}
	return tw.Flush()
}

func printLinks(w io.Writer, links []model.Link) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tURL")
	for _, l := range links {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.ID, l.Title, l.URL)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"linkdeck/internal/api"
	"linkdeck/internal/cache"
	"linkdeck/internal/config"
	"linkdeck/internal/links"
	"linkdeck/internal/logger"
	"linkdeck/internal/session"
	"linkdeck/internal/vault"
	"linkdeck/pkg/shortcode"
)

const usage = `Usage: linkdeck <command> [flags]

Commands:
  login <username>      authenticate and persist the session
  logout                drop the session
  register <username> <email>
  list [-page N] [-search TERM]
  get <id>
  create -code CODE -url URL -title TITLE [-desc TEXT]
  update <id> [-url URL] [-title TITLE] [-desc TEXT] [-active BOOL]
  delete <id>
  stats <short-code>
  suggest               print a random short code
  health
  info
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "linkdeck:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}

	cfg, err := config.Load(os.Getenv("LINKDECK_CONFIG"))
	if err != nil {
		return err
	}

	log := logger.New(cfg.Env, os.Stderr)

	vlt, err := vault.New(ctx, cfg.State.Path)
	if err != nil {
		return err
	}
	defer vlt.Close()

	client := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log),
	)
	store := session.NewStore(client, vlt, log)
	qc := cache.New(cache.WithLogger(log))
	svc := links.NewService(client, qc, log)

	app := &app{cfg: cfg, client: client, store: store, svc: svc}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return app.login(ctx, rest)
	case "logout":
		store.Bootstrap(ctx)
		store.Logout(ctx)
		return nil
	case "register":
		return app.register(ctx, rest)
	case "list":
		return app.withAuth(ctx, func() error { return app.list(ctx, rest) })
	case "get":
		return app.withAuth(ctx, func() error { return app.get(ctx, rest) })
	case "create":
		return app.withAuth(ctx, func() error { return app.create(ctx, rest) })
	case "update":
		return app.withAuth(ctx, func() error { return app.update(ctx, rest) })
	case "delete":
		return app.withAuth(ctx, func() error { return app.delete(ctx, rest) })
	case "stats":
		return app.withAuth(ctx, func() error { return app.stats(ctx, rest) })
	case "suggest":
		code, err := shortcode.Suggest()
		if err != nil {
			return err
		}
		fmt.Println(code)
		return nil
	case "health":
		if err := app.client.Health(ctx); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	case "info":
		info, err := app.client.Info(ctx)
		if err != nil {
			return err
		}
		for k, v := range info {
			fmt.Printf("%s: %v\n", k, v)
		}
		return nil
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

type app struct {
	cfg    *config.Config
	client *api.Client
	store  *session.Store
	svc    *links.Service
}

// withAuth resolves the persisted session before a protected command
// runs, and turns the gate's redirect into a login hint.
func (a *app) withAuth(ctx context.Context, fn func() error) error {
	a.store.Bootstrap(ctx)

	if session.Decide(a.store.Snapshot()) != session.ShowContent {
		return errors.New("not logged in; run `linkdeck login <username>` first")
	}

	return fn()
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: linkdeck login <username>")
	}

	password, err := promptSecret("Password: ")
	if err != nil {
		return err
	}

	if err := a.store.Login(ctx, args[0], password); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			return errors.New(apiErr.Detail)
		}
		return err
	}

	fmt.Printf("logged in as %s\n", a.store.Snapshot().User.Username)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: linkdeck register <username> <email>")
	}

	password, err := promptSecret("Password: ")
	if err != nil {
		return err
	}

	user, err := a.client.RegisterUser(ctx, args[0], args[1], password)
	if err != nil {
		return err
	}

	fmt.Printf("registered %s; run `linkdeck login %s` to sign in\n", user.Username, user.Username)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	search := fs.String("search", "", "search term")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pager := links.NewPager(a.cfg.PageSize)
	pager.SetSearch(*search)
	pager.Page = *page

	result, err := a.svc.List(ctx, pager)
	if err != nil {
		return err
	}

	for _, link := range result.Links {
		status := ""
		if !link.IsActive {
			status = " (inactive)"
		}
		fmt.Printf("%4d  %-20s  %-40s  %d clicks%s\n",
			link.ID, link.ShortCode, link.Title, link.AccessCount, status)
	}
	fmt.Printf("page %d of %d, %d links total\n",
		pager.Page, pager.PageCount(result.Total), result.Total)

	return nil
}

func (a *app) get(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}

	link, err := a.svc.Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("id:          %d\n", link.ID)
	fmt.Printf("short code:  %s\n", link.ShortCode)
	fmt.Printf("target url:  %s\n", link.TargetURL)
	fmt.Printf("title:       %s\n", link.Title)
	if link.Description != "" {
		fmt.Printf("description: %s\n", link.Description)
	}
	fmt.Printf("active:      %t\n", link.IsActive)
	fmt.Printf("clicks:      %d\n", link.AccessCount)
	fmt.Printf("owner:       %s\n", link.Owner.Username)

	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	code := fs.String("code", "", "short code (leave empty for a suggestion)")
	target := fs.String("url", "", "target URL")
	title := fs.String("title", "", "link title")
	desc := fs.String("desc", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *code == "" {
		suggested, err := shortcode.Suggest()
		if err != nil {
			return err
		}
		*code = suggested
	}

	link, err := a.svc.Create(ctx, api.CreateLink{
		ShortCode:   *code,
		TargetURL:   *target,
		Title:       *title,
		Description: *desc,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created %s -> %s (id %d)\n", link.ShortCode, link.TargetURL, link.ID)
	return nil
}

func (a *app) update(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: linkdeck update <id> [flags]")
	}
	id, err := parseID(args[:1])
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	target := fs.String("url", "", "target URL")
	title := fs.String("title", "", "link title")
	desc := fs.String("desc", "", "description")
	active := fs.String("active", "", "true or false")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var patch api.UpdateLink
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			patch.TargetURL = target
		case "title":
			patch.Title = title
		case "desc":
			patch.Description = desc
		case "active":
			v := *active == "true"
			patch.IsActive = &v
		}
	})

	link, err := a.svc.Update(ctx, id, patch)
	if err != nil {
		return err
	}

	fmt.Printf("updated %s (id %d)\n", link.ShortCode, link.ID)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}

	link, err := a.svc.Get(ctx, id)
	if err != nil {
		return err
	}

	err = a.svc.Delete(ctx, link, func() bool {
		fmt.Printf("Delete %q (%s)? This cannot be undone. [y/N] ", link.Title, link.ShortCode)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		return strings.TrimSpace(strings.ToLower(answer)) == "y"
	})
	if err != nil {
		if errors.Is(err, links.ErrDeleteAborted) {
			fmt.Println("aborted")
			return nil
		}
		return err
	}

	fmt.Printf("deleted %s\n", link.ShortCode)
	return nil
}

func (a *app) stats(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: linkdeck stats <short-code>")
	}

	stats, err := a.svc.Stats(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("short code:    %s\n", stats.ShortCode)
	fmt.Printf("clicks:        %d\n", stats.AccessCount)
	fmt.Printf("created:       %s\n", stats.CreatedAt.Format("2006-01-02 15:04:05"))
	if stats.LastAccessed != nil {
		fmt.Printf("last accessed: %s\n", stats.LastAccessed.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("last accessed: never")
	}

	return nil
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected a single link id")
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid link id %q", args[0])
	}

	return id, nil
}

func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

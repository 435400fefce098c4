package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	config "github.com/avvvet/kidzone-services/configs"
	"github.com/avvvet/kidzone-services/internal/websvc/db"
	"github.com/avvvet/kidzone-services/internal/websvc/kv"
	"github.com/avvvet/kidzone-services/internal/websvc/service"
	"github.com/avvvet/kidzone-services/internal/websvc/store"
)

const SERVICE_NAME = "platformctl"

func main() {
	config.LoadEnv(SERVICE_NAME)
	config.SetLevel(os.Getenv("LOG_LEVEL"))

	app := &cli.App{
		Name:  SERVICE_NAME,
		Usage: "operate the kidzone platform",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-url", EnvVars: []string{"DATABASE_URL"}, Usage: "postgres connection string"},
			&cli.StringFlag{Name: "redis-url", EnvVars: []string{"REDIS_URL"}, Usage: "redis connection string"},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			sweepCommand(),
			submissionsCommand(),
			leaderboardCommand(),
			usersCommand(),
			tokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDB(c *cli.Context) (*pgxpool.Pool, error) {
	dsn := c.String("database-url")
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	return db.Connect(dsn)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply the database schema",
		Action: func(c *cli.Context) error {
			pool, err := openDB(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(c.Context, pool); err != nil {
				return err
			}
			fmt.Println("schema applied")
			return nil
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "close table sessions left open too long",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "older-than", Value: 2 * time.Hour, EnvVars: []string{"SESSION_STALE_AFTER"}},
			&cli.DurationFlag{Name: "every", Usage: "repeat at this interval until interrupted"},
		},
		Action: func(c *cli.Context) error {
			pool, err := openDB(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			tables := service.NewTablesService(store.NewSessionStore(pool), service.NewScoreService(nil))
			sweep := func(ctx context.Context) error {
				n, err := tables.SweepStale(ctx, c.Duration("older-than"))
				if err != nil {
					return err
				}
				log.Infof("closed %d stale table sessions", n)
				return nil
			}

			every := c.Duration("every")
			if every <= 0 {
				return sweep(c.Context)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				if err := sweep(ctx); err != nil {
					log.Errorf("sweep error: %v", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
}

func submissionsCommand() *cli.Command {
	moderate := func(approve bool) cli.ActionFunc {
		return func(c *cli.Context) error {
			id, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("usage: submissions %s <id>", c.Command.Name)
			}
			pool, err := openDB(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			subs := service.NewSubmissionService(store.NewSubmissionStore(pool), nil)
			if approve {
				_, err = subs.Approve(c.Context, id, c.String("reviewer"), c.String("notes"))
			} else {
				_, err = subs.Reject(c.Context, id, c.String("reviewer"), c.String("notes"))
			}
			if err != nil {
				return err
			}
			fmt.Printf("submission %d %sd\n", id, c.Command.Name)
			return nil
		}
	}
	reviewFlags := []cli.Flag{
		&cli.StringFlag{Name: "reviewer", Value: SERVICE_NAME},
		&cli.StringFlag{Name: "notes"},
	}

	return &cli.Command{
		Name:  "submissions",
		Usage: "review community game submissions",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list submissions, newest first",
				Flags: []cli.Flag{&cli.StringFlag{Name: "status", Usage: "pending, approved, rejected ..."}},
				Action: func(c *cli.Context) error {
					pool, err := openDB(c)
					if err != nil {
						return err
					}
					defer pool.Close()

					subs, err := service.NewSubmissionService(store.NewSubmissionStore(pool), nil).List(c.Context, c.String("status"))
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tSLUG\tTITLE\tSTATUS\tCREATED")
					for _, s := range subs {
						fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.GameSlug, s.GameTitle, s.Status, s.CreatedAt.Format(time.RFC3339))
					}
					return w.Flush()
				},
			},
			{Name: "approve", Usage: "approve <id>", Flags: reviewFlags, Action: moderate(true)},
			{Name: "reject", Usage: "reject <id>", Flags: reviewFlags, Action: moderate(false)},
		},
	}
}

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "inspect game leaderboards",
		Subcommands: []*cli.Command{
			{
				Name:  "top",
				Usage: "top <slug>",
				Action: func(c *cli.Context) error {
					url := c.String("redis-url")
					if url == "" {
						return fmt.Errorf("REDIS_URL is not set")
					}
					client, err := kv.Connect(c.Context, url)
					if err != nil {
						return err
					}
					defer client.Close()

					top, err := service.NewScoreService(kv.NewLeaderboard(client, 0)).Top(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "#\tNAME\tSCORE")
					for i, e := range top {
						fmt.Fprintf(w, "%d\t%s\t%d\n", i+1, e.Name, e.Score)
					}
					return w.Flush()
				},
			},
		},
	}
}

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "manage accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "set-admin",
				Usage: "set-admin <username>",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "revoke"}},
				Action: func(c *cli.Context) error {
					username := c.Args().First()
					if username == "" {
						return fmt.Errorf("usage: users set-admin <username>")
					}
					pool, err := openDB(c)
					if err != nil {
						return err
					}
					defer pool.Close()

					admin := !c.Bool("revoke")
					if err := store.NewUserStore(pool).SetAdmin(c.Context, username, admin); err != nil {
						return fmt.Errorf("set admin for %s: %w", username, err)
					}
					fmt.Printf("%s admin=%t\n", username, admin)
					return nil
				},
			},
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "token <username>: print a session token for the account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "jwt-secret", EnvVars: []string{"JWT_SECRET_KEY"}},
		},
		Action: func(c *cli.Context) error {
			secret := c.String("jwt-secret")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET_KEY is not set")
			}
			username := c.Args().First()
			if username == "" {
				return fmt.Errorf("usage: token <username>")
			}
			pool, err := openDB(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			user, err := store.NewUserStore(pool).GetByUsername(c.Context, username)
			if err != nil {
				return fmt.Errorf("lookup %s: %w", username, err)
			}
			users := service.NewUserService(store.NewUserStore(pool), jwtauth.New("HS256", []byte(secret), nil))
			token, err := users.IssueToken(user)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"time"

	"servicecatalog/engine/internal/container"
	"servicecatalog/engine/internal/domain/task"
	"servicecatalog/engine/internal/pricing"
	"servicecatalog/engine/internal/queue"
	"servicecatalog/engine/internal/state"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "base", Aliases: []string{"b"}, Usage: "Tier or retainer id", Required: true},
		&cli.StringSliceFlag{Name: "discount", Aliases: []string{"d"}, Usage: "Discount id (repeatable)"},
		&cli.StringSliceFlag{Name: "module", Aliases: []string{"m"}, Usage: "Add-on module id (repeatable)"},
		&cli.IntFlag{Name: "term", Usage: "Term in months for recurring bases"},
		&cli.IntFlag{Name: "units", Usage: "Units for per-unit bases"},
	}
}

func selectionFrom(c *cli.Context) pricing.Selection {
	sel := pricing.Selection{
		Base:      c.String("base"),
		Discounts: c.StringSlice("discount"),
		Modules:   c.StringSlice("module"),
	}
	if c.IsSet("term") {
		term := c.Int("term")
		sel.Term = &term
	}
	if c.IsSet("units") {
		units := c.Int("units")
		sel.Units = &units
	}
	return sel
}

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "Price a selection against the catalog",
		Flags: append(selectionFlags(),
			&cli.StringFlag{Name: "stacking", Usage: "Discount stacking policy (stack, once_per_condition)"},
			&cli.StringFlag{Name: "recurring-term", Usage: "Recurring total policy (per_period, full_term)"},
		),
		Action: func(c *cli.Context) error {
			s, cfg, err := loadStore(c)
			if err != nil {
				return err
			}

			stacking, term := cfg.Pricing.DiscountStacking, cfg.Pricing.RecurringTerm
			if c.IsSet("stacking") {
				stacking = c.String("stacking")
			}
			if c.IsSet("recurring-term") {
				term = c.String("recurring-term")
			}
			policy, err := pricing.ParsePolicy(stacking, term)
			if err != nil {
				return err
			}

			q, err := pricing.NewResolver(policy).Quote(s, selectionFrom(c))
			if err != nil {
				var perr *pricing.PricingError
				if errors.As(err, &perr) {
					return cli.Exit(fmt.Sprintf("❌ %s: %s", perr.Kind, perr.Message), 3)
				}
				return err
			}
			return printJSON(q)
		},
	}
}

func enqueueQuoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "enqueue-quote",
		Usage: "Queue a selection for the running engine and optionally wait for the result",
		Flags: append(selectionFlags(),
			&cli.BoolFlag{Name: "wait", Usage: "Poll for the stored result"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "How long --wait polls"},
		),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			rdb, err := container.NewRedis(c.Context, cfg.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close()

			q, err := queue.NewRedisQueue(c.Context, rdb, cfg.Redis)
			if err != nil {
				return err
			}

			qt := task.NewQuoteTask(selectionFrom(c))
			msgID, err := q.AddTask(c.Context, qt)
			if err != nil {
				return err
			}
			log.Infof("📨 Queued quote %s as message %s", qt.RequestID, msgID)

			if !c.Bool("wait") {
				fmt.Println(qt.RequestID)
				return nil
			}

			results := state.NewRedisStateManager(rdb, time.Duration(cfg.Redis.QuoteResultTTL)*time.Second)
			deadline := time.Now().Add(c.Duration("timeout"))
			for time.Now().Before(deadline) {
				body, err := results.GetQuoteResult(c.Context, qt.RequestID)
				if err == nil {
					fmt.Println(string(body))
					return nil
				}
				if !errors.Is(err, state.ErrResultNotFound) {
					return err
				}

				select {
				case <-c.Context.Done():
					return c.Context.Err()
				case <-time.After(500 * time.Millisecond):
				}
			}
			return cli.Exit(fmt.Sprintf("no result for %s after %v", qt.RequestID, c.Duration("timeout")), 4)
		},
	}
}

func enqueueReloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "enqueue-reload",
		Usage: "Ask the running engine to reload the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Usage: "Load from this source instead of catalog.source"},
			&cli.BoolFlag{Name: "force", Usage: "Reload even if the document is unchanged"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			rdb, err := container.NewRedis(c.Context, cfg.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close()

			q, err := queue.NewRedisQueue(c.Context, rdb, cfg.Redis)
			if err != nil {
				return err
			}

			rt := task.NewReloadTask(c.String("source"), c.Bool("force"))
			if _, err := q.AddTask(c.Context, rt); err != nil {
				return err
			}
			fmt.Println(rt.RequestID)
			return nil
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"servicecatalog/engine/internal/domain"
	"servicecatalog/engine/internal/export"
	"servicecatalog/engine/internal/query"
	"servicecatalog/engine/internal/validator"

	"github.com/urfave/cli/v2"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check the catalog and list every violation",
		Action: func(c *cli.Context) error {
			s, _, err := loadStore(c)
			var verr *validator.Errors
			if errors.As(err, &verr) {
				for _, v := range verr.Violations {
					fmt.Println(v)
				}
				return cli.Exit(fmt.Sprintf("❌ %d violations", len(verr.Violations)), 2)
			}
			if err != nil {
				return err
			}

			fmt.Printf("✅ Catalog is valid: %d entities\n", s.Len())
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List the children of an entity, or the categories when no id is given",
		ArgsUsage: "[id]",
		Action: func(c *cli.Context) error {
			s, _, err := loadStore(c)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tNAME")
			for _, e := range s.Children(c.Args().First()) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.EntityID(), e.EntityKind(), entityName(e))
			}
			return w.Flush()
		},
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show one entity with its pricing",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("get takes exactly one id", 1)
			}
			s, _, err := loadStore(c)
			if err != nil {
				return err
			}

			e, err := s.Get(c.Args().First())
			if err != nil {
				return err
			}

			out := map[string]any{"kind": e.EntityKind(), "entity": e}
			if p, ok := domain.PricingOf(e); ok {
				out["pricing_kind"] = p.PricingKind()
				out["pricing"] = p
			}
			return printJSON(out)
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search names, descriptions, deliverables and retainer services",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "keyword", Aliases: []string{"k"}, Usage: "Filter categories by keyword instead"},
		},
		Action: func(c *cli.Context) error {
			s, _, err := loadStore(c)
			if err != nil {
				return err
			}
			q := query.New(s)

			if c.Bool("keyword") {
				return printJSON(q.FilterByKeyword(c.Args().First()))
			}
			return printJSON(q.Search(c.Args().First()))
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Print catalog totals, keyword frequency and price statistics",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "prices", Usage: "Only print the price summary"},
		},
		Action: func(c *cli.Context) error {
			s, _, err := loadStore(c)
			if err != nil {
				return err
			}
			q := query.New(s)

			if c.Bool("prices") {
				return printJSON(q.PriceSummary())
			}
			return printJSON(q.Report())
		},
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Export the catalog as nested JSON or as CSV tables",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Value: "json", Usage: "Output format (json, csv)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (json) or directory (csv); json defaults to stdout"},
		},
		Action: func(c *cli.Context) error {
			s, _, err := loadStore(c)
			if err != nil {
				return err
			}

			switch c.String("to") {
			case "json":
				if c.String("out") == "" {
					return export.WriteJSON(os.Stdout, s)
				}
				f, err := os.Create(c.String("out"))
				if err != nil {
					return err
				}
				defer f.Close()
				if err := export.WriteJSON(f, s); err != nil {
					return err
				}
				return f.Close()

			case "csv":
				dir := c.String("out")
				if dir == "" {
					dir = "."
				}
				paths, err := export.WriteCSV(dir, s)
				if err != nil {
					return err
				}
				for _, name := range []string{"services", "packages", "tiers", "retainers"} {
					fmt.Printf("📄 %s\n", paths[name])
				}
				return nil

			default:
				return cli.Exit(fmt.Sprintf("unknown output format %q", c.String("to")), 1)
			}
		},
	}
}

func entityName(e domain.Entity) string {
	switch v := e.(type) {
	case *domain.ServiceCategory:
		return v.Name
	case domain.Offering:
		return v.OfferingName()
	case *domain.Tier:
		return v.Name
	case *domain.AddOnModule:
		return v.Name
	case *domain.Discount:
		return v.Condition
	default:
		return ""
	}
}

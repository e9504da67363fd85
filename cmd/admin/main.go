// Package main provides admin management utilities for Quill.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/forms"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/service"

	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin groups create --title T --slug S [--description D]  - Create a group")
	fmt.Println("  admin groups list                                         - List groups")
	fmt.Println("  admin groups delete --slug S                              - Delete a group; its posts stay ungrouped")
	fmt.Println("  admin migrate up                                          - Apply pending schema changes")
	fmt.Println("  admin migrate down                                        - Revert the newest SQL migration")
	fmt.Println("  admin migrate status                                      - Show migration state")
}

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	middleware.InitLogger(cfg.Env, cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	group, command, args := os.Args[1], os.Args[2], os.Args[3:]
	switch group + " " + command {
	case "groups create":
		err = createGroup(ctx, cfg, db, args)
	case "groups list":
		err = listGroups(ctx, db)
	case "groups delete":
		err = deleteGroup(ctx, cfg, db, args)
	case "migrate up":
		err = database.ApplySchema(ctx, db, cfg)
		if err == nil {
			fmt.Println("Schema is up to date")
		}
	case "migrate down":
		var m *database.Migration
		if m, err = database.RollbackLast(ctx, db); err == nil {
			fmt.Printf("Reverted %s\n", m.String())
		}
	case "migrate status":
		err = migrateStatus(ctx, cfg, db)
	default:
		fmt.Printf("Unknown command: %s %s\n", group, command)
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s %s failed: %v", group, command, err)
	}
}

func createGroup(ctx context.Context, cfg *config.Config, db *gorm.DB, args []string) error {
	fs := flag.NewFlagSet("groups create", flag.ExitOnError)
	form := forms.GroupForm{}
	fs.StringVar(&form.Title, "title", "", "Group title")
	fs.StringVar(&form.Slug, "slug", "", "URL slug")
	fs.StringVar(&form.Description, "description", "", "Group description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if errs := form.Validate(); errs.Any() {
		for field, msgs := range errs {
			fmt.Printf("  %s: %s\n", field, strings.Join(msgs, " "))
		}
		return fmt.Errorf("invalid group")
	}

	repo := repository.NewGroupRepository(db)
	if _, err := repo.GetBySlug(ctx, form.Slug); err == nil {
		return fmt.Errorf("group with slug %q already exists", form.Slug)
	} else if !models.HasCode(err, models.CodeNotFound) {
		return err
	}

	g := &models.Group{Title: form.Title, Slug: form.Slug, Description: form.Description}
	if err := repo.Create(ctx, g); err != nil {
		return err
	}
	invalidateGroup(ctx, cfg, g.Slug)
	fmt.Printf("Created group %s (ID: %d)\n", g.Slug, g.ID)
	return nil
}

func listGroups(ctx context.Context, db *gorm.DB) error {
	groups, err := repository.NewGroupRepository(db).List(ctx)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Println("No groups")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSLUG\tTITLE")
	for _, g := range groups {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
	}
	return w.Flush()
}

func deleteGroup(ctx context.Context, cfg *config.Config, db *gorm.DB, args []string) error {
	fs := flag.NewFlagSet("groups delete", flag.ExitOnError)
	slug := fs.String("slug", "", "URL slug of the group to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slug == "" {
		return fmt.Errorf("--slug is required")
	}

	if err := repository.NewGroupRepository(db).DeleteBySlug(ctx, *slug); err != nil {
		return err
	}
	invalidateGroup(ctx, cfg, *slug)
	fmt.Printf("Deleted group %s\n", *slug)
	return nil
}

// invalidateGroup drops the cached group and index pages so running
// servers see the change.
func invalidateGroup(ctx context.Context, cfg *config.Config, slug string) {
	rdb := cache.InitRedis(cfg.RedisURL)
	if rdb == nil {
		return
	}
	defer func() { _ = rdb.Close() }()
	cache.InvalidateGroup(ctx, slug)
	cache.InvalidatePages(ctx, service.IndexRoute)
}

func migrateStatus(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Mode:          %s\n", status.Mode)
	fmt.Printf("Environment:   %s\n", status.Environment)
	fmt.Printf("SQL migrations: %v, AutoMigrate: %v\n", status.WillRunSQL, status.WillRunAutoMigrate)
	fmt.Printf("Applied:       %v\n", status.AppliedVersions)
	if len(status.PendingMigrations) == 0 {
		fmt.Println("Pending:       none")
		return nil
	}
	fmt.Println("Pending:")
	for _, m := range status.PendingMigrations {
		fmt.Printf("  %s\n", m.String())
	}
	return nil
}

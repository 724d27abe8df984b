package main

import (
	"context"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/postgres"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"github.com/pagewise/bookstore/backend/pkg/config"
)

type seedBook struct {
	id, title, author, description, category string
	price                                    int64
	rating                                   float64
}

var categories = []goqu.Record{
	{"id": "fantasy", "name": "Fantasy"},
	{"id": "horror", "name": "Horror"},
	{"id": "comics", "name": "Comics"},
	{"id": "literary", "name": "Literary Fiction"},
	{"id": "scifi", "name": "Science Fiction"},
	{"id": "selfhelp", "name": "Self Help"},
}

var books = []seedBook{
	{"b-dune", "Dune", "Frank Herbert", "Desert planet politics, prophecy and ecology.", "scifi", 189000, 4.6},
	{"b-foundation", "Foundation", "Isaac Asimov", "A mathematician predicts the fall of a galactic empire.", "scifi", 145000, 4.3},
	{"b-hobbit", "The Hobbit", "J.R.R. Tolkien", "A reluctant hobbit joins a company of dwarves.", "fantasy", 120000, 4.7},
	{"b-earthsea", "A Wizard of Earthsea", "Ursula K. Le Guin", "A young mage confronts the shadow he released.", "fantasy", 98000, 4.4},
	{"b-firstlaw", "The Blade Itself", "Joe Abercrombie", "Grim, morally grey fantasy with sharp humour.", "fantasy", 160000, 4.2},
	{"b-shining", "The Shining", "Stephen King", "A winter caretaker slowly loses his mind.", "horror", 95000, 4.5},
	{"b-hillhouse", "The Haunting of Hill House", "Shirley Jackson", "Four visitors and a house that is not sane.", "horror", 85000, 4.1},
	{"b-mexgothic", "Mexican Gothic", "Silvia Moreno-Garcia", "A decaying mansion hides a fungal secret.", "horror", 135000, 4.0},
	{"b-doraemon", "Doraemon Tập 1", "Fujiko F. Fujio", "A robot cat from the future helps a clumsy boy.", "comics", 25000, 4.8},
	{"b-conan", "Thám Tử Lừng Danh Conan Tập 1", "Gosho Aoyama", "A detective shrunk into a child's body.", "comics", 30000, 4.7},
	{"b-maus", "Maus", "Art Spiegelman", "A graphic memoir of survival.", "comics", 210000, 4.6},
	{"b-watchmen", "Watchmen", "Alan Moore", "Retired heroes in an alternate Cold War.", "comics", 125000, 4.5},
	{"b-norwegian", "Norwegian Wood", "Haruki Murakami", "A melancholic coming of age in 1960s Tokyo.", "literary", 110000, 4.2},
	{"b-stoner", "Stoner", "John Williams", "A quiet life of a small-town university teacher.", "literary", 105000, 4.4},
	{"b-alchemist", "Nhà Giả Kim", "Paulo Coelho", "A shepherd follows his dream across the desert.", "literary", 69000, 4.3},
	{"b-mansearch", "Man's Search for Meaning", "Viktor Frankl", "Finding purpose in suffering.", "selfhelp", 88000, 4.7},
	{"b-atomic", "Atomic Habits", "James Clear", "Small habits compound into large results.", "selfhelp", 159000, 4.6},
}

var comments = []goqu.Record{
	{"book_id": "b-dune", "rating": 5, "text": "The world building is unmatched, slow first act though."},
	{"book_id": "b-hobbit", "rating": 5, "text": "Cozy and adventurous, perfect first fantasy."},
	{"book_id": "b-firstlaw", "rating": 4, "text": "Dark and funny, not for readers who want clear heroes."},
	{"book_id": "b-shining", "rating": 5, "text": "Genuinely scary, the isolation gets under your skin."},
	{"book_id": "b-hillhouse", "rating": 4, "text": "Subtle dread rather than gore."},
	{"book_id": "b-norwegian", "rating": 4, "text": "Sad and beautiful, stayed with me for weeks."},
	{"book_id": "b-stoner", "rating": 5, "text": "Quiet, melancholic and devastating."},
	{"book_id": "b-mansearch", "rating": 5, "text": "Gave this to a friend after a loss, it helped."},
	{"book_id": "b-doraemon", "rating": 5, "text": "Con tôi rất thích, giá rẻ."},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-seed", cfg.Log.Env, cfg.Log.Level)

	ctx := context.Background()
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pgClient.Close()

	if err := pgClient.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				insight_reports,
				comments,
				order_items,
				orders,
				users,
				books,
				categories
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to reset tables")
		}
	}

	db := goqu.New("postgres", pgClient.DB())
	insert := func(table string, rows []goqu.Record) {
		if len(rows) == 0 {
			return
		}
		values := make([]interface{}, len(rows))
		for i, r := range rows {
			values[i] = r
		}
		if _, err := db.Insert(table).Rows(values...).OnConflict(goqu.DoNothing()).Executor().ExecContext(ctx); err != nil {
			log.Error().Err(err).Str("table", table).Msg("seed insert failed")
		}
	}

	insert("categories", categories)

	bookRows := make([]goqu.Record, len(books))
	for i, b := range books {
		bookRows[i] = goqu.Record{
			"id": b.id, "title": b.title, "author": b.author, "description": b.description,
			"category_id": b.category, "price": b.price, "rating": b.rating,
		}
	}
	insert("books", bookRows)

	users := []goqu.Record{
		{"id": "u-reader", "email": "reader@example.com", "name": "Demo Reader"},
		{"id": "u-owner", "email": "owner@example.com", "name": "Store Owner"},
	}
	insert("users", users)

	commentRows := make([]goqu.Record, len(comments))
	for i, c := range comments {
		row := goqu.Record{"id": uuid.New().String(), "user_id": "u-reader", "author_name": "Demo Reader"}
		for k, v := range c {
			row[k] = v
		}
		commentRows[i] = row
	}
	insert("comments", commentRows)

	// spread orders over the last 30 days so the insight report has a window to analyze
	now := time.Now()
	statuses := []string{"delivered", "completed", "shipping", "cancelled", "pending"}
	var orders, items []goqu.Record
	for i := 0; i < 60; i++ {
		id := uuid.New().String()
		orders = append(orders, goqu.Record{
			"id":         id,
			"user_id":    "u-reader",
			"status":     statuses[i%len(statuses)],
			"created_at": now.Add(-time.Duration(i*12) * time.Hour),
		})
		b := books[(i*7)%len(books)]
		items = append(items, goqu.Record{
			"order_id": id, "book_id": b.id, "quantity": 1 + i%3, "unit_price": b.price,
		})
	}
	insert("orders", orders)
	insert("order_items", items)

	if _, err := pgClient.DB().ExecContext(ctx, `
		UPDATE books b SET sales_count = s.qty
		FROM (
			SELECT oi.book_id, SUM(oi.quantity) AS qty
			FROM order_items oi JOIN orders o ON o.id = oi.order_id
			WHERE o.status = ANY($1)
			GROUP BY oi.book_id
		) s
		WHERE b.id = s.book_id
	`, pq.Array(repositories.SoldOrderStatuses)); err != nil {
		log.Error().Err(err).Msg("failed to refresh sales counts")
	}

	log.Info().Int("books", len(books)).Int("orders", len(orders)).Msg("seeding completed")
}

package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/urfave/cli/v2"

	"libraryapi/internal/config"
	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/platform/postgres"
)

func main() {
	config.LoadEnvFiles()

	app := &cli.App{
		Name:  "seed",
		Usage: "insert sample books and an admin account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dsn", EnvVars: []string{"DB_DSN"}, Value: config.DatabaseDSN()},
			&cli.IntFlag{Name: "books", Value: 50, Usage: "number of generated books"},
			&cli.Int64Flag{Name: "rand-seed", Value: 1, Usage: "seed for generated data"},
			&cli.StringFlag{Name: "admin-email", Value: "admin@library.local"},
			&cli.StringFlag{Name: "admin-username", Value: "admin"},
			&cli.StringFlag{Name: "admin-password", EnvVars: []string{"SEED_ADMIN_PASSWORD"}, Required: true},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type seedBook struct {
	ISBN      string
	Title     string
	Author    string
	Genre     string
	Publisher string
	Year      int
}

type seedAdmin struct {
	Email        string
	Username     string
	PasswordHash string
}

func run(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(c.Context, time.Minute)
	defer cancel()

	if err := crypto.ValidatePasswordStrength(c.String("admin-password")); err != nil {
		return fmt.Errorf("admin password: %w", err)
	}
	hash, err := crypto.HashPassword(c.String("admin-password"))
	if err != nil {
		return err
	}

	pool, err := postgres.Open(ctx, c.String("dsn"), 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect %s: %w", config.RedactDSN(c.String("dsn")), err)
	}
	defer pool.Close()

	books := generateBooks(rand.New(rand.NewSource(c.Int64("rand-seed"))), c.Int("books"))
	admin := seedAdmin{Email: c.String("admin-email"), Username: c.String("admin-username"), PasswordHash: hash}

	batch := seedBatch(books, admin)
	results := pool.SendBatch(ctx, batch)
	inserted := 0
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return fmt.Errorf("seed statement %d: %w", i, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return err
	}
	log.Printf("inserted %d rows (%d statements, existing rows skipped)", inserted, batch.Len())

	var total int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM books").Scan(&total); err != nil {
		return err
	}
	log.Printf("Total books in database: %d", total)
	return nil
}

// seedBatch queues every insert in one round trip. Rows that already exist
// are left alone so the command can be rerun.
func seedBatch(books []seedBook, admin seedAdmin) *pgx.Batch {
	b := &pgx.Batch{}
	b.Queue(`INSERT INTO users (email, username, password_hash, role)
		VALUES ($1, $2, $3, 'ADMIN') ON CONFLICT DO NOTHING`,
		admin.Email, admin.Username, admin.PasswordHash)
	for _, bk := range books {
		b.Queue(`INSERT INTO books (isbn, title, author, genre, publisher, publication_year)
			VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (isbn) DO NOTHING`,
			bk.ISBN, bk.Title, bk.Author, bk.Genre, bk.Publisher, bk.Year)
	}
	return b
}

var (
	genres     = []string{"Fiction", "Science Fiction", "History", "Science", "Technology", "Romance", "Mystery", "Biography", "Philosophy", "Art"}
	publishers = []string{"Penguin", "HarperCollins", "Oxford", "Cambridge", "MIT Press", "Springer", "Wiley", "Elsevier"}
	surnames   = []string{"Okafor", "Lindqvist", "Tanaka", "Moreau", "Haddad", "Novak", "Castillo", "Mbeki"}
)

func generateBooks(r *rand.Rand, n int) []seedBook {
	books := make([]seedBook, 0, n)
	for i := 0; i < n; i++ {
		books = append(books, seedBook{
			ISBN:      isbn13(978000000000 + int64(i)),
			Title:     fmt.Sprintf("%s of %s", randomWord(r), randomWord(r)),
			Author:    fmt.Sprintf("%c. %s", 'A'+rune(r.Intn(26)), surnames[r.Intn(len(surnames))]),
			Genre:     genres[r.Intn(len(genres))],
			Publisher: publishers[r.Intn(len(publishers))],
			Year:      1950 + r.Intn(75),
		})
	}
	return books
}

// isbn13 appends the check digit to a 12 digit prefix.
func isbn13(prefix int64) string {
	s := fmt.Sprintf("%012d", prefix)
	sum := 0
	for i, ch := range s {
		d := int(ch - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return fmt.Sprintf("%s%d", s, (10-sum%10)%10)
}

func randomWord(r *rand.Rand) string {
	words := []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
		"Past", "Present", "Reality", "Imagination", "Wisdom", "Life", "Death",
		"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
	}
	return words[r.Intn(len(words))]
}

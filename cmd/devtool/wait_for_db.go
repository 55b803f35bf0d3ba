package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	waitMaxRetries    = 30
	waitRetryInterval = 2 * time.Second
)

func runWaitForDB() {
	fmt.Println("Waiting for database...")

	url := dbURL()

	var lastErr error
	for i := 0; i < waitMaxRetries; i++ {
		db, err := sql.Open("pgx", url)
		if err == nil {
			err = db.Ping()
			db.Close()
			if err == nil {
				fmt.Println("Database is ready")
				return
			}
		}
		lastErr = err

		fmt.Printf("Database not ready (%d/%d): %v\n", i+1, waitMaxRetries, err)
		time.Sleep(waitRetryInterval)
	}

	fmt.Fprintf(os.Stderr, "Database failed to become ready after %d attempts: %v\n", waitMaxRetries, lastErr)
	os.Exit(1)
}

// Command debug dumps the sync state tables for inspection.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/forcelink/forcelink/internal/database"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default/environment variables")
	}

	// Construct connection string
	connString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
	)

	dbPool, err := database.NewPool(connString, 5, 30*time.Minute, time.Hour)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	ctx := context.Background()

	// Dump mappings
	fmt.Println("--- Mappings ---")
	rows, err := dbPool.Query(ctx, `
		SELECT mapping_id, name, local_type, remote_object, last_pull_at, last_delete_at
		FROM sync_mappings ORDER BY name
	`)
	if err != nil {
		log.Printf("Failed to query mappings: %v", err)
	} else {
		defer rows.Close()
		for rows.Next() {
			var id, name, localType, remoteObject string
			var lastPull, lastDelete *time.Time
			if err := rows.Scan(&id, &name, &localType, &remoteObject, &lastPull, &lastDelete); err != nil {
				log.Printf("Failed to scan mapping: %v", err)
				continue
			}
			fmt.Printf("ID: %s, Name: %s, LocalType: %s, RemoteObject: %s, LastPull: %v, LastDelete: %v\n",
				id, name, localType, remoteObject, formatTime(lastPull), formatTime(lastDelete))
		}
	}

	// Dump links
	fmt.Println("\n--- Links ---")
	query := `
		SELECT l.link_id, m.name, l.local_id, l.remote_id, l.force_pull, l.last_synced_at
		FROM sync_links l
		JOIN sync_mappings m ON l.mapping_id = m.mapping_id
		ORDER BY m.name, l.local_id
	`
	rows, err = dbPool.Query(ctx, query)
	if err != nil {
		log.Printf("Failed to query links: %v", err)
	} else {
		defer rows.Close()
		for rows.Next() {
			var id, mapping, localID, remoteID string
			var forcePull bool
			var syncedAt time.Time
			if err := rows.Scan(&id, &mapping, &localID, &remoteID, &forcePull, &syncedAt); err != nil {
				log.Printf("Failed to scan link: %v", err)
				continue
			}
			fmt.Printf("LinkID: %s, Mapping: %s, Local: %s, Remote: %s, ForcePull: %t, SyncedAt: %s\n",
				id, mapping, localID, remoteID, forcePull, syncedAt.Format(time.RFC3339))
		}
	}

	// Dump the push queue, quarantined items last
	fmt.Println("\n--- Push Queue ---")
	query = `
		SELECT q.item_id, m.name, q.local_id, q.operation, q.failure_count, q.quarantined, q.last_error
		FROM sync_push_queue q
		JOIN sync_mappings m ON q.mapping_id = m.mapping_id
		ORDER BY q.quarantined, q.created_at
	`
	rows, err = dbPool.Query(ctx, query)
	if err != nil {
		log.Printf("Failed to query push queue: %v", err)
	} else {
		defer rows.Close()
		for rows.Next() {
			var id, mapping, localID, operation, lastError string
			var failures int
			var quarantined bool
			if err := rows.Scan(&id, &mapping, &localID, &operation, &failures, &quarantined, &lastError); err != nil {
				log.Printf("Failed to scan queue item: %v", err)
				continue
			}
			fmt.Printf("ItemID: %s, Mapping: %s, Local: %s, Op: %s, Failures: %d, Quarantined: %t",
				id, mapping, localID, operation, failures, quarantined)
			if lastError != "" {
				fmt.Printf(", LastError: %s", lastError)
			}
			fmt.Println()
		}
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}

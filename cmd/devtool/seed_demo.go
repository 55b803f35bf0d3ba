package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"

	"github.com/forcelink/forcelink/internal/domain"
)

// demoMapping is a contact mapping wired for both directions. It matches
// the object shapes the in-process fake remote accepts, so a fresh install
// can exercise full push and pull cycles immediately.
func demoMapping() *domain.Mapping {
	return &domain.Mapping{
		Name:         "contact",
		LocalType:    "contact",
		RemoteObject: "Contact",
		Bindings: []domain.FieldBinding{
			{RemoteField: "FirstName", Kind: domain.BindingAttribute, Direction: domain.DirectionBoth, LocalPath: "first_name"},
			{RemoteField: "LastName", Kind: domain.BindingAttribute, Direction: domain.DirectionBoth, LocalPath: "last_name"},
			{RemoteField: "Email", Kind: domain.BindingAttribute, Direction: domain.DirectionBoth, LocalPath: "email"},
			{RemoteField: "LeadSource", Kind: domain.BindingConstant, Direction: domain.DirectionPush, Constant: "forcelink"},
		},
		Triggers: domain.TriggerFlags{
			LocalCreate:  true,
			LocalUpdate:  true,
			LocalDelete:  true,
			RemoteCreate: true,
			RemoteUpdate: true,
			RemoteDelete: true,
		},
		ExternalKeyField: "Email",
		PullDateField:    "LastModifiedDate",
	}
}

func runSeedDemo() {
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, dbURL())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	m := demoMapping()

	bindings, err := json.Marshal(m.Bindings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode bindings: %v\n", err)
		os.Exit(1)
	}
	triggers, err := json.Marshal(m.Triggers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode triggers: %v\n", err)
		os.Exit(1)
	}

	tag, err := conn.Exec(ctx, `
		INSERT INTO sync_mappings
			(name, local_type, local_subtype, remote_object, bindings, triggers,
			 external_key_field, pull_date_field, push_standalone, pull_standalone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name) DO NOTHING
	`, m.Name, m.LocalType, m.LocalSubtype, m.RemoteObject, bindings, triggers,
		m.ExternalKeyField, m.PullDateField, m.PushStandalone, m.PullStandalone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to insert demo mapping: %v\n", err)
		os.Exit(1)
	}

	if tag.RowsAffected() == 0 {
		fmt.Printf("Mapping %q already exists, nothing to do\n", m.Name)
		return
	}
	fmt.Printf("Seeded demo mapping %q (%s -> %s)\n", m.Name, m.LocalType, m.RemoteObject)
}

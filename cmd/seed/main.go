// Command seed issues operator and viewer tokens for a control-plane run,
// both in-memory and (when DATABASE_URL is set) durably in Postgres so a
// restarted server recognizes tokens issued by a previous process. Ported
// from the teacher's cmd/seed, which seeded passenger/driver/admin ride
// identities plus a sample driver GPS position — this module has no
// passenger/driver roles, only operator (may issue tokens, in future may
// gain write endpoints) and viewer (read-only).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"darpsim/internal/auth"
	"darpsim/internal/storage"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mem := auth.NewInMemoryStore()
	ttl := 24 * time.Hour

	operator, _ := mem.Register(auth.RoleOperator, ttl)
	viewer, _ := mem.Register(auth.RoleViewer, ttl)
	mem.Seed(operator)
	mem.Seed(viewer)

	identities := []auth.Identity{operator, viewer}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL != "" {
		pool, err := storage.DefaultPool(ctx, dbURL)
		if err != nil {
			log.Fatalf("db connect failed: %v", err)
		}
		if err := storage.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("schema ensure failed: %v", err)
		}
		idStore := storage.NewIdentityStore(pool)
		if err := idStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("identity schema failed: %v", err)
		}
		for _, ident := range identities {
			if _, err := idStore.Save(ctx, ident, ttl); err != nil {
				log.Fatalf("save identity failed: %v", err)
			}
		}
	}

	for _, ident := range identities {
		fmt.Printf("%s: id=%s token=%s expires=%v\n", ident.Role, ident.ID, ident.Token, ident.ExpiresAt)
	}
}

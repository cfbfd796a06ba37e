package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/starfall/internal/game/party"
)

// ErrPartyNotFound is returned when the configured party row does not exist.
var ErrPartyNotFound = errors.New("party not found")

// ErrPartyExists is returned when creating a party whose id is already taken.
var ErrPartyExists = errors.New("party already exists")

// PartyRepository is a party.Store backed by the parties, party_characters
// and party_inventory tables. It serves exactly one party.
type PartyRepository struct {
	db      *pgxpool.Pool
	partyID string
}

// NewPartyRepository creates a PartyRepository for partyID.
//
// Precondition: db must be a valid, open connection pool; partyID must be non-empty.
func NewPartyRepository(db *pgxpool.Pool, partyID string) *PartyRepository {
	return &PartyRepository{db: db, partyID: partyID}
}

// Create inserts p as a new party.
//
// Precondition: p must pass party.Party.Validate.
// Postcondition: Returns ErrPartyExists if the id is taken; nothing is
// written on error.
func (r *PartyRepository) Create(ctx context.Context, p party.Party) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("creating party %q: %w", r.partyID, err)
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO parties (id, currency) VALUES ($1, $2)`, r.partyID, p.Currency); err != nil {
			if isDuplicateKeyError(err) {
				return ErrPartyExists
			}
			return fmt.Errorf("inserting party: %w", err)
		}
		for i, c := range p.Characters {
			spells := c.Spells
			if spells == nil {
				spells = []string{}
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO party_characters
					(party_id, id, position, name, level, xp, xp_to_current_level, xp_to_next_level,
					 hp, max_hp, mp, max_mp, attack, defense, speed, spells)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
				r.partyID, c.ID, i, c.Name, c.Level, c.XP, c.XPToCurrentLevel, c.XPToNextLevel,
				c.HP, c.MaxHP, c.MP, c.MaxMP, c.Attack, c.Defense, c.Speed, spells,
			)
			if err != nil {
				return fmt.Errorf("inserting character %q: %w", c.ID, err)
			}
		}
		for id, qty := range p.Inventory {
			if qty <= 0 {
				continue
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO party_inventory (party_id, item_id, quantity) VALUES ($1, $2, $3)`,
				r.partyID, id, qty,
			); err != nil {
				return fmt.Errorf("inserting item %q: %w", id, err)
			}
		}
		return nil
	})
}

// Load implements party.Store.
//
// Postcondition: Returns ErrPartyNotFound if the party does not exist.
// Characters are returned in their stored order.
func (r *PartyRepository) Load(ctx context.Context) (party.Party, error) {
	p := party.Party{Inventory: make(map[string]int)}
	err := r.db.QueryRow(ctx, `SELECT currency FROM parties WHERE id = $1`, r.partyID).Scan(&p.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return party.Party{}, fmt.Errorf("party %q: %w", r.partyID, ErrPartyNotFound)
	}
	if err != nil {
		return party.Party{}, fmt.Errorf("loading party %q: %w", r.partyID, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, name, level, xp, xp_to_current_level, xp_to_next_level,
		       hp, max_hp, mp, max_mp, attack, defense, speed, spells
		FROM party_characters WHERE party_id = $1 ORDER BY position ASC`,
		r.partyID,
	)
	if err != nil {
		return party.Party{}, fmt.Errorf("listing characters: %w", err)
	}
	p.Characters, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (party.Character, error) {
		var c party.Character
		err := row.Scan(
			&c.ID, &c.Name, &c.Level, &c.XP, &c.XPToCurrentLevel, &c.XPToNextLevel,
			&c.HP, &c.MaxHP, &c.MP, &c.MaxMP, &c.Attack, &c.Defense, &c.Speed, &c.Spells,
		)
		if len(c.Spells) == 0 {
			c.Spells = nil
		}
		return c, err
	})
	if err != nil {
		return party.Party{}, fmt.Errorf("scanning characters: %w", err)
	}

	rows, err = r.db.Query(ctx,
		`SELECT item_id, quantity FROM party_inventory WHERE party_id = $1 AND quantity > 0`,
		r.partyID,
	)
	if err != nil {
		return party.Party{}, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return party.Party{}, fmt.Errorf("scanning inventory: %w", err)
		}
		p.Inventory[id] = qty
	}
	if err := rows.Err(); err != nil {
		return party.Party{}, fmt.Errorf("listing inventory: %w", err)
	}
	return p, nil
}

// Commit implements party.Store. The update is applied in one transaction
// with the party row locked, so concurrent commits serialize. Semantics
// match party.Party.Apply: unknown characters are ignored, inventory rows
// that fall to zero are removed and currency never goes negative.
//
// Postcondition: Returns ErrPartyNotFound if the party does not exist;
// nothing is written on error.
func (r *PartyRepository) Commit(ctx context.Context, u party.Update) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var currency int
		err := tx.QueryRow(ctx, `SELECT currency FROM parties WHERE id = $1 FOR UPDATE`, r.partyID).Scan(&currency)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("party %q: %w", r.partyID, ErrPartyNotFound)
		}
		if err != nil {
			return fmt.Errorf("locking party %q: %w", r.partyID, err)
		}

		for _, c := range u.Characters {
			spells := c.Spells
			if spells == nil {
				spells = []string{}
			}
			_, err := tx.Exec(ctx, `
				UPDATE party_characters SET
					name = $3, level = $4, xp = $5, xp_to_current_level = $6, xp_to_next_level = $7,
					hp = $8, max_hp = $9, mp = $10, max_mp = $11,
					attack = $12, defense = $13, speed = $14, spells = $15
				WHERE party_id = $1 AND id = $2`,
				r.partyID, c.ID, c.Name, c.Level, c.XP, c.XPToCurrentLevel, c.XPToNextLevel,
				c.HP, c.MaxHP, c.MP, c.MaxMP, c.Attack, c.Defense, c.Speed, spells,
			)
			if err != nil {
				return fmt.Errorf("updating character %q: %w", c.ID, err)
			}
		}

		for id, delta := range u.InventoryDelta {
			if delta == 0 {
				continue
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO party_inventory (party_id, item_id, quantity) VALUES ($1, $2, $3)
				ON CONFLICT (party_id, item_id)
				DO UPDATE SET quantity = party_inventory.quantity + EXCLUDED.quantity`,
				r.partyID, id, delta,
			)
			if err != nil {
				return fmt.Errorf("adjusting item %q: %w", id, err)
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM party_inventory WHERE party_id = $1 AND quantity <= 0`, r.partyID); err != nil {
			return fmt.Errorf("pruning inventory: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE parties SET currency = $2, updated_at = NOW() WHERE id = $1`,
			r.partyID, max(0, currency+u.CurrencyDelta),
		); err != nil {
			return fmt.Errorf("updating currency: %w", err)
		}
		return nil
	})
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

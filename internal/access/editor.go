package access

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/depot-erp/depot/internal/shared"
)

// EditorArea is one row of the grant editor.
type EditorArea struct {
	PermissionID int64           `json:"permission_id"`
	Area         string          `json:"area"`
	Label        string          `json:"label"`
	Enabled      bool            `json:"enabled"`
	SubAreas     []EditorSubArea `json:"sub_areas"`
}

// EditorSubArea is one capability checkbox.
type EditorSubArea struct {
	Token   string `json:"token"`
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

// GrantInput enables one permission for the owner with the given sub-areas. An empty
// SubAreas list enables the area with zero sub-areas.
type GrantInput struct {
	PermissionID int64    `json:"permission_id" validate:"required,gt=0"`
	SubAreas     []string `json:"sub_areas"`
}

// Editor describes the grants the owner holds directly: role rows for ScopeRole, override
// rows for ScopeUser. Every active permission is listed; Enabled marks rows that exist.
func (s *Service) Editor(ctx context.Context, scope Scope, ownerID int64) ([]EditorArea, error) {
	if !scope.Valid() || ownerID <= 0 {
		return nil, fmt.Errorf("%w: scope %q owner %d", ErrInvalidGrant, scope, ownerID)
	}
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.ownerRows(ctx, scope, ownerID)
	if err != nil {
		return nil, err
	}

	granted := make(map[int64]map[string]struct{}, len(rows))
	for _, row := range rows {
		tokens, _ := DecodeAccess(row.Access)
		subs := granted[row.PermissionID]
		if subs == nil {
			subs = make(map[string]struct{}, len(tokens))
			granted[row.PermissionID] = subs
		}
		for _, t := range tokens {
			subs[t] = struct{}{}
		}
	}

	perms := catalog.Permissions()
	out := make([]EditorArea, 0, len(perms))
	for _, perm := range perms {
		subs, enabled := granted[perm.ID]
		area := EditorArea{
			PermissionID: perm.ID,
			Area:         perm.Area,
			Label:        Label(perm.Area),
			Enabled:      enabled,
			SubAreas:     make([]EditorSubArea, 0, len(perm.SubAreas)),
		}
		for _, token := range perm.SubAreas {
			_, checked := subs[token]
			area.SubAreas = append(area.SubAreas, EditorSubArea{Token: token, Label: Label(token), Checked: checked})
		}
		out = append(out, area)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Area < out[j].Area })
	return out, nil
}

// SaveGrants replaces the owner's grant rows with inputs. Every permission and sub-area
// must exist in the active catalog. Cached sets of affected actors are invalidated.
// Editors may not replace their own user overrides.
func (s *Service) SaveGrants(ctx context.Context, editorID int64, scope Scope, ownerID int64, inputs []GrantInput) error {
	if !scope.Valid() || ownerID <= 0 {
		return fmt.Errorf("%w: scope %q owner %d", ErrInvalidGrant, scope, ownerID)
	}
	if scope == ScopeUser && editorID == ownerID {
		return ErrSelfGrant
	}
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return err
	}

	merged := make(map[int64][]string, len(inputs))
	var order []int64
	for _, in := range inputs {
		perm, ok := catalog.ByID(in.PermissionID)
		if !ok {
			return fmt.Errorf("%w: unknown permission %d", ErrInvalidGrant, in.PermissionID)
		}
		if _, seen := merged[perm.ID]; !seen {
			order = append(order, perm.ID)
			merged[perm.ID] = []string{}
		}
		for _, raw := range in.SubAreas {
			token, err := NormalizeToken(raw)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidGrant, perm.Area, err)
			}
			if !catalog.Offers(perm.ID, token) {
				return fmt.Errorf("%w: %s has no sub-area %q", ErrInvalidGrant, perm.Area, token)
			}
			merged[perm.ID] = append(merged[perm.ID], token)
		}
	}

	rows := make([]GrantRow, 0, len(order))
	meta := make(map[string]any, len(order))
	for _, id := range order {
		csv, err := EncodeAccess(merged[id])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidGrant, err)
		}
		rows = append(rows, GrantRow{PermissionID: id, Access: csv})
		perm, _ := catalog.ByID(id)
		meta[perm.Area] = csv
	}

	if err := s.repo.ReplaceGrants(ctx, scope, ownerID, rows); err != nil {
		return fmt.Errorf("access: replace %s grants: %w", scope, err)
	}

	if s.hooks.Audit != nil {
		entry := shared.AuditLog{
			ActorID:  editorID,
			Action:   "grants.replace",
			Entity:   string(scope),
			EntityID: strconv.FormatInt(ownerID, 10),
			Meta:     meta,
			At:       time.Now().UTC(),
		}
		if err := s.hooks.Audit.Record(ctx, entry); err != nil {
			s.logger.Warn("audit grant edit", slog.Any("error", err))
		}
	}
	if s.hooks.Invalidator != nil {
		if err := s.hooks.Invalidator.InvalidateGrants(ctx, scope, ownerID); err != nil {
			s.logger.Warn("invalidate grants",
				slog.String("scope", string(scope)),
				slog.Int64("owner_id", ownerID),
				slog.Any("error", err))
		}
	}
	return nil
}

func (s *Service) ownerRows(ctx context.Context, scope Scope, ownerID int64) ([]GrantRow, error) {
	var (
		rows []GrantRow
		err  error
	)
	if scope == ScopeRole {
		rows, err = s.repo.RoleGrants(ctx, ownerID)
	} else {
		rows, err = s.repo.UserGrants(ctx, ownerID)
	}
	if err != nil {
		return nil, &LoadError{Op: string(scope) + " grants", Err: err}
	}
	return rows, nil
}

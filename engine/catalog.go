package engine

import (
	"fmt"
	"sort"
)

// RoleMeta is the static metadata of a role definition, exposed to the
// caller for UI display.
type RoleMeta struct {
	ID         string   `json:"roleId"`
	Team       Team     `json:"team"`
	NightOrder int      `json:"nightOrder"`
	Actions    []string `json:"actions"`
}

// actionContext carries everything a role behavior needs to validate or
// apply one action. target is nil when no target seat was supplied.
type actionContext struct {
	session *Session
	actor   *Player
	action  string
	target  *Player
}

// RoleDef couples role metadata with its validate and apply behaviors.
// Team-level defaults are composed by explicit delegation: a concrete
// role's validate calls the team template's validate before adding its
// own checks.
type RoleDef struct {
	RoleMeta
	phaseOK  func(phase Phase, action string) bool
	validate func(ctx *actionContext) error
	apply    func(ctx *actionContext) string
}

// Catalog is the immutable set of role definitions, built once at
// startup and passed explicitly into the engine.
type Catalog struct {
	roles map[string]*RoleDef
}

// Lookup returns the definition for roleID or an UnknownRole error.
func (c Catalog) Lookup(roleID string) (*RoleDef, error) {
	def, ok := c.roles[roleID]
	if !ok {
		return nil, newError(KindUnknownRole, "unknown role: %s", roleID)
	}
	return def, nil
}

// List returns role metadata ordered by night priority.
func (c Catalog) List() []RoleMeta {
	metas := make([]RoleMeta, 0, len(c.roles))
	for _, def := range c.roles {
		metas = append(metas, def.RoleMeta)
	}
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].NightOrder != metas[j].NightOrder {
			return metas[i].NightOrder < metas[j].NightOrder
		}
		return metas[i].ID < metas[j].ID
	})
	return metas
}

func (c Catalog) teamOf(roleID string) Team {
	if def, ok := c.roles[roleID]; ok {
		return def.Team
	}
	return TeamNeutral
}

// NewCatalog builds the role table: the god and wolf team templates plus
// the concrete guard, werewolf, seer, witch and villager roles.
func NewCatalog() Catalog {
	c := Catalog{roles: make(map[string]*RoleDef)}

	nightOnly := func(phase Phase, _ string) bool { return phase == PhaseNight }
	never := func(Phase, string) bool { return false }

	requireTarget := func(ctx *actionContext) error {
		if ctx.target == nil {
			return newError(KindInvalidInput, "action %s requires a target seat", ctx.action)
		}
		return nil
	}

	// God team template: night-phase only, any supplied target must be alive.
	godValidate := func(ctx *actionContext) error {
		if ctx.target != nil && !ctx.target.Alive {
			return newError(KindRuleViolation, "target seat %d is already dead", ctx.target.Seat)
		}
		return nil
	}

	// Wolf team template: night-phase only, single kill action. Target
	// existence is already guaranteed by the validator before role
	// validation runs.
	wolfValidate := func(ctx *actionContext) error {
		return requireTarget(ctx)
	}

	guard := &RoleDef{
		RoleMeta: RoleMeta{ID: RoleGuard, Team: TeamGood, NightOrder: 10, Actions: []string{ActionProtect}},
		phaseOK:  nightOnly,
	}
	guard.validate = func(ctx *actionContext) error {
		if err := requireTarget(ctx); err != nil {
			return err
		}
		if err := godValidate(ctx); err != nil {
			return err
		}
		if !ctx.session.Rules.GuardConsecutiveProtectAllowed {
			if last := ctx.session.lastEventBy(RoleGuard); last != nil && last.Target != nil && *last.Target == ctx.target.Seat {
				return newError(KindRuleViolation, "cannot guard the same seat on consecutive nights")
			}
		}
		return nil
	}
	guard.apply = func(ctx *actionContext) string {
		ctx.target.Guarded = true
		return fmt.Sprintf("guard protects seat %d", ctx.target.Seat)
	}

	werewolf := &RoleDef{
		RoleMeta: RoleMeta{ID: RoleWerewolf, Team: TeamWerewolf, NightOrder: 20, Actions: []string{ActionKill}},
		phaseOK:  nightOnly,
		validate: wolfValidate,
	}
	werewolf.apply = func(ctx *actionContext) string {
		ctx.target.Alive = false
		return fmt.Sprintf("werewolves kill seat %d", ctx.target.Seat)
	}

	seer := &RoleDef{
		RoleMeta: RoleMeta{ID: RoleSeer, Team: TeamGood, NightOrder: 30, Actions: []string{ActionCheck}},
		phaseOK:  nightOnly,
	}
	seer.validate = func(ctx *actionContext) error {
		if err := requireTarget(ctx); err != nil {
			return err
		}
		return godValidate(ctx)
	}
	seer.apply = func(ctx *actionContext) string {
		if c.teamOf(ctx.target.Role) == TeamWerewolf {
			return fmt.Sprintf("seer checks seat %d: werewolf", ctx.target.Seat)
		}
		return fmt.Sprintf("seer checks seat %d: not a werewolf", ctx.target.Seat)
	}

	witch := &RoleDef{
		RoleMeta: RoleMeta{ID: RoleWitch, Team: TeamGood, NightOrder: 40, Actions: []string{ActionHeal, ActionPoison}},
		phaseOK:  nightOnly,
	}
	witch.validate = func(ctx *actionContext) error {
		if err := requireTarget(ctx); err != nil {
			return err
		}
		if err := godValidate(ctx); err != nil {
			return err
		}
		if ctx.action == ActionHeal && ctx.session.Night == 1 &&
			!ctx.session.Rules.WitchSelfSaveFirstNight && ctx.target.Seat == ctx.actor.Seat {
			return newError(KindRuleViolation, "witch cannot heal herself on the first night")
		}
		return nil
	}
	witch.apply = func(ctx *actionContext) string {
		if ctx.action == ActionPoison {
			ctx.target.Alive = false
			return fmt.Sprintf("witch poisons seat %d", ctx.target.Seat)
		}
		ctx.target.Alive = true
		return fmt.Sprintf("witch heals seat %d", ctx.target.Seat)
	}

	villager := &RoleDef{
		RoleMeta: RoleMeta{ID: RoleVillager, Team: TeamGood, NightOrder: 90, Actions: nil},
		phaseOK:  never,
		validate: func(*actionContext) error { return nil },
		apply:    func(*actionContext) string { return "" },
	}

	for _, def := range []*RoleDef{guard, werewolf, seer, witch, villager} {
		c.roles[def.ID] = def
	}
	return c
}

package engine

// Team groups roles into win-condition camps.
type Team string

const (
	TeamGood     Team = "good"
	TeamWerewolf Team = "werewolf"
	TeamNeutral  Team = "neutral"
)

// Role identifiers known to the catalog.
const (
	RoleGuard    = "guard"
	RoleWerewolf = "werewolf"
	RoleSeer     = "seer"
	RoleWitch    = "witch"
	RoleVillager = "villager"
)

// Player is one seat at the table. Guarded is transient and recomputed
// every night by the batch resolver.
type Player struct {
	Seat     int    `json:"seat"`
	Nickname string `json:"nickname"`
	Role     string `json:"role,omitempty"`
	Alive    bool   `json:"alive"`
	Guarded  bool   `json:"guarded"`
}

// Rules holds the per-session rule configuration. SheriffEnabled is
// accepted and persisted but no operation executes a sheriff sub-phase.
type Rules struct {
	WitchSelfSaveFirstNight        bool   `json:"witchSelfSaveFirstNight"`
	GuardConsecutiveProtectAllowed bool   `json:"guardConsecutiveProtectAllowed"`
	SheriffEnabled                 bool   `json:"sheriffEnabled"`
	Language                       string `json:"language,omitempty"`
}

// RoleCounts maps role identifiers to how many copies to deal.
type RoleCounts map[string]int

// Total returns the number of role cards in the configuration.
func (rc RoleCounts) Total() int {
	total := 0
	for _, n := range rc {
		total += n
	}
	return total
}

// Presets are the built-in role-count templates.
var Presets = map[string]RoleCounts{
	"9p-classic": {
		RoleWerewolf: 3,
		RoleSeer:     1,
		RoleWitch:    1,
		RoleGuard:    1,
		RoleVillager: 3,
	},
	"12p-classic": {
		RoleWerewolf: 4,
		RoleSeer:     1,
		RoleWitch:    1,
		RoleGuard:    1,
		RoleVillager: 5,
	},
}

// Session is one game instance: the unit of mutation. Engine operations
// take a session, check everything up front, and only then mutate, so a
// returned error always means the session is unchanged.
type Session struct {
	Phase       Phase      `json:"phase"`
	MaxSeats    int        `json:"maxSeats"`
	Night       int        `json:"night"`
	Players     []Player   `json:"players"`
	Rules       Rules      `json:"rules"`
	RoleConfig  RoleCounts `json:"roleConfig"`
	Log         []Event    `json:"log"`
	NextEventID int64      `json:"nextEventId"`
}

// NewSession creates a session in the init phase with no players seated.
func NewSession(maxSeats int, rules Rules, counts RoleCounts) *Session {
	return &Session{
		Phase:      PhaseInit,
		MaxSeats:   maxSeats,
		Rules:      rules,
		RoleConfig: counts,
	}
}

// Player returns the player occupying seat, or nil.
func (s *Session) Player(seat int) *Player {
	for i := range s.Players {
		if s.Players[i].Seat == seat {
			return &s.Players[i]
		}
	}
	return nil
}

// RoleSeat returns the seat of the first player holding the given role.
func (s *Session) RoleSeat(roleID string) (int, bool) {
	for i := range s.Players {
		if s.Players[i].Role == roleID {
			return s.Players[i].Seat, true
		}
	}
	return 0, false
}

func (s *Session) rolesAssigned() bool {
	for i := range s.Players {
		if s.Players[i].Role != "" {
			return true
		}
	}
	return false
}

package tournament

// Team is a real, registered team. Its ID is unique within a tournament.
type Team struct {
	ID   int
	Name string
}

// Participant fills one side of a match. It is either a resolved Team or a
// placeholder label such as "1° Series A" or "Winner SF1" that is still
// waiting on standings or a sibling result.
type Participant struct {
	team  *Team
	label string
}

// Resolved returns a participant bound to a concrete team.
func Resolved(t Team) Participant {
	return Participant{team: &t}
}

// Placeholder returns an unresolved participant carrying a seed label.
func Placeholder(label string) Participant {
	return Participant{label: label}
}

// Team returns the concrete team and true, or a zero Team and false for a
// placeholder.
func (p Participant) Team() (Team, bool) {
	if p.team == nil {
		return Team{}, false
	}
	return *p.team, true
}

// IsResolved reports whether the participant is a concrete team.
func (p Participant) IsResolved() bool {
	return p.team != nil
}

// Label is the placeholder label; empty once resolved.
func (p Participant) Label() string {
	if p.team != nil {
		return ""
	}
	return p.label
}

// Name is the display name: the team name, or the placeholder label.
func (p Participant) Name() string {
	if p.team != nil {
		return p.team.Name
	}
	if p.label == "" {
		return "TBD"
	}
	return p.label
}

// Is reports whether the participant is the team with the given id.
func (p Participant) Is(id int) bool {
	return p.team != nil && p.team.ID == id
}

package manifest

import (
	"sort"

	"github.com/spaghettifunk/character-studio/engine/metadata"
)

/**
 * @brief Returns the groups of current that cannot be worn together with
 * candidate. Group restrictions and type restrictions are both symmetric.
 * The candidate's own group is never reported.
 */
func (p *Provider) Conflicts(candidate *metadata.SelectedOption, current map[string]*metadata.SelectedOption) []string {
	if candidate == nil || candidate.Model == nil {
		return nil
	}
	groupID := candidate.GroupID()
	var out []string
	for otherID, other := range current {
		if otherID == groupID || other == nil || other.Model == nil {
			continue
		}
		if p.restricts(groupID, candidate.Model, otherID, other.Model) ||
			p.restricts(otherID, other.Model, groupID, candidate.Model) {
			out = append(out, otherID)
		}
	}
	sort.Strings(out)
	return out
}

// restricts reports whether option a of group ga forbids option b of group gb.
func (p *Provider) restricts(ga string, a *metadata.TraitOption, gb string, b *metadata.TraitOption) bool {
	g, ok := p.manifest.groupIndex[ga]
	if ok {
		for _, r := range g.RestrictedTraits {
			if r == gb {
				return true
			}
		}
		for _, t := range g.RestrictedTypes {
			if hasType(b, t) {
				return true
			}
		}
	}
	if a.Model == nil {
		return false
	}
	for _, ta := range a.Model.Types {
		for _, forbidden := range p.manifest.TypeRestrictions[ta] {
			if hasType(b, forbidden) {
				return true
			}
		}
	}
	return false
}

func hasType(o *metadata.TraitOption, t string) bool {
	if o == nil || o.Model == nil {
		return false
	}
	for _, ot := range o.Model.Types {
		if ot == t {
			return true
		}
	}
	return false
}

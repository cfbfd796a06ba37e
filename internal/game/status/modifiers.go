package status

// AttackBonus returns the net attack modifier from all active statuses.
func AttackBonus(s Set) int {
	total := 0
	for _, a := range s {
		total += a.Def.AttackBonus
	}
	return total
}

// DefenseBonus returns the net defense modifier from all active statuses.
func DefenseBonus(s Set) int {
	total := 0
	for _, a := range s {
		total += a.Def.DefenseBonus
	}
	return total
}

// DamageDivisor returns the largest incoming-damage divisor among active
// statuses, or 1 when none reduce damage.
//
// Postcondition: Returns >= 1.
func DamageDivisor(s Set) int {
	div := 1
	for _, a := range s {
		if a.Def.DamageDivisor > div {
			div = a.Def.DamageDivisor
		}
	}
	return div
}

package game

import "golang.org/x/exp/rand"

// Roll holds three zero-indexed die faces, 0..5 each.
type Roll [3]int

// Option is one way to spend a roll: the region whose value is Offset+2 and
// Troop+1 soldiers.
type Option struct {
	Offset int `json:"offset"` // 0..10
	Troop  int `json:"troop"`  // 0..2
}

func (o Option) Value() int  { return o.Offset + MinValue }
func (o Option) Troops() int { return o.Troop + 1 }

func RollDice(rng *rand.Rand) Roll {
	return Roll{rng.Intn(6), rng.Intn(6), rng.Intn(6)}
}

// Options pairs two dice for the region and halves the third for the troops.
func (r Roll) Options() [3]Option {
	return [3]Option{
		{Offset: r[0] + r[1], Troop: r[2] / 2},
		{Offset: r[0] + r[2], Troop: r[1] / 2},
		{Offset: r[2] + r[1], Troop: r[0] / 2},
	}
}

// AllRolls enumerates every outcome of three dice.
func AllRolls() []Roll {
	rolls := make([]Roll, 0, NumRolls)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			for k := 0; k < 6; k++ {
				rolls = append(rolls, Roll{i, j, k})
			}
		}
	}
	return rolls
}

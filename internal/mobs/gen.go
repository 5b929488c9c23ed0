// Mob generation: ages, personality traits, life histories, and starting
// desires. This is an entirely nurture-based model of personality; Mother
// Nature and Daddy Darwin have no part in it.
package mobs

import (
	"math/rand"

	"github.com/talgya/townsim/internal/heatmap"
)

// Age bands for generation.
const (
	minAge   = 4
	adultAge = 16
	minOnset = 18
	maxAge   = 60
)

// Childhood flavors a mob's upbringing.
type Childhood uint8

const (
	ChildhoodAthletic Childhood = iota
	ChildhoodMischievous
	ChildhoodOutdoor
)

var childhoodNames = [...]string{"athletic", "mischievous", "outdoor"}

// String returns the childhood's lowercase name.
func (c Childhood) String() string { return childhoodNames[c] }

// Training names a multi-year package of life experience. The original four
// attribute classes collapsed into flavour here: training shapes the
// history and the starting desires, not combat stats the simulation never
// reads.
type Training uint8

const (
	TrainingFarmhand Training = iota
	TrainingAssistant
	TrainingGatherer
	TrainingInnkeeper
	TrainingTrader
	TrainingWoodsman
	TrainingLaborer
	TrainingAdventuring
)

var trainingNames = [...]string{
	"farmhand", "assistant", "gatherer", "innkeeper",
	"trader", "woodsman", "laborer", "adventuring",
}

// String returns the training's lowercase name.
func (tp Training) String() string { return trainingNames[tp] }

// years a package takes to complete.
func (tp Training) years() int {
	switch tp {
	case TrainingFarmhand, TrainingAssistant, TrainingGatherer:
		return 2
	case TrainingAdventuring:
		return 3
	}
	return 3
}

var youthPackages = []Training{TrainingFarmhand, TrainingAssistant, TrainingGatherer}
var adultPackages = []Training{TrainingInnkeeper, TrainingTrader, TrainingWoodsman, TrainingLaborer}

// GenAdventurer rolls an adventurer: always brave, with a taste for the
// dungeon.
func GenAdventurer(rng *rand.Rand, lang *Language) *Mobile {
	age := minOnset + rng.Intn(maxAge-minOnset)
	m := gen(rng, lang, age, true)
	m.Desires[heatmap.TagAdventure] = 3 + rng.Float64()*3
	m.Desires[heatmap.TagRest] = rng.Float64()
	m.Desires[heatmap.TagSustenance] = rng.Float64()
	m.applyTraitFloors()
	return m
}

// GenAdult rolls an ordinary boring adult.
func GenAdult(rng *rand.Rand, lang *Language) *Mobile {
	age := adultAge + rng.Intn(maxAge-adultAge)
	m := gen(rng, lang, age, false)
	m.Desires[heatmap.TagGeneralStore] = rng.Float64() * 2
	m.Desires[heatmap.TagRest] = rng.Float64()
	m.Desires[heatmap.TagSustenance] = rng.Float64()
	m.applyTraitFloors()
	return m
}

// GenChild rolls a child.
func GenChild(rng *rand.Rand, lang *Language) *Mobile {
	age := minAge + rng.Intn(adultAge-minAge)
	m := gen(rng, lang, age, false)
	m.Desires[heatmap.TagSustenance] = rng.Float64()
	m.applyTraitFloors()
	return m
}

// applyTraitFloors bumps desires that a trait keeps from ever starting low.
func (m *Mobile) applyTraitFloors() {
	if m.IsGluttonous && m.Desires[heatmap.TagSustenance] < 0.5 {
		m.Desires[heatmap.TagSustenance] = 0.5
	}
	if m.IsSlothful && m.Desires[heatmap.TagRest] < 0.5 {
		m.Desires[heatmap.TagRest] = 0.5
	}
}

func gen(rng *rand.Rand, lang *Language, age int, isAdventurer bool) *Mobile {
	m := &Mobile{
		Name:    lang.GenPersonal(rng),
		Age:     age,
		History: []LifeEvent{{Age: 0, Kind: EventBorn}},
		Desires: make(map[heatmap.Tag]float64),
	}

	// 25% of the population are particularly avaricious/brave/whatnot,
	// except that all adventurers are brave.
	m.IsAvaricious = rng.Intn(4) == 0
	m.IsBrave = isAdventurer || rng.Intn(4) == 0
	m.IsEnvious = rng.Intn(4) == 0
	m.IsGluttonous = rng.Intn(4) == 0
	m.IsSlothful = rng.Intn(4) == 0

	childhood := Childhood(rng.Intn(len(childhoodNames)))
	m.History = append(m.History, LifeEvent{Age: minAge, Kind: EventRaised, Detail: childhood.String()})

	// Youth training up to adulthood, then adult packages. Adventurers get
	// their onset somewhere after minOnset and adventure from then on.
	onset := 0
	if isAdventurer && age > minOnset {
		onset = minOnset + rng.Intn(age-minOnset+1)
		m.OnsetAge = onset
	}

	year := minAge
	for year < age {
		var tp Training
		switch {
		case year < adultAge:
			tp = youthPackages[rng.Intn(len(youthPackages))]
		case onset != 0 && year >= onset:
			tp = TrainingAdventuring
		default:
			tp = adultPackages[rng.Intn(len(adultPackages))]
		}
		m.History = append(m.History, LifeEvent{Age: year, Kind: EventLearned, Detail: tp.String()})
		year += tp.years()
	}

	if onset != 0 {
		m.History = append(m.History, LifeEvent{Age: onset, Kind: EventOnset})
	}

	return m
}

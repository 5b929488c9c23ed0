package mobs

import (
	"math/rand"
	"strings"
)

// Procedurally generated languages, after the approach described at
// http://mewo2.com/notes/naming-language/. A language is a growing pool of
// morphemes plus the phonology rules for minting new ones, so names drawn
// from one language share a recognizable sound.

// extraMorphemes is the number of "fresh" slots considered when picking a
// morpheme. Small pools mint new morphemes often; large pools mostly reuse.
const extraMorphemes = 10

// maxGivenLen caps the character length of a given name.
const maxGivenLen = 12

// letter classes used in syllable structures.
type letterClass uint8

const (
	classVowel letterClass = iota
	classConsonant
	classSibilant
	classLiquid
	classFinal
)

// syllablePart is one slot in a syllable structure. Optional slots are
// dropped half the time.
type syllablePart struct {
	class    letterClass
	required bool
}

// namePart is one slot in a surname structure.
type namePart struct {
	kind     nameClass
	required bool
}

type nameClass uint8

const (
	nameGeneric nameClass = iota
	nameRegion
	nameName
	nameParticle
	nameSpace
)

// Language holds the morpheme pools and generation rules for one culture.
type Language struct {
	genericMorphemes  []string
	regionMorphemes   []string
	nameMorphemes     []string
	particleMorphemes []string

	perGivenMin int
	perGivenMax int
	surname     []namePart
	joiner      string
	capParticle float64

	vowels     []rune
	consonants []rune
	sibilants  []rune
	liquids    []rune
	finals     []rune
	spelling   map[rune]string
	syllable   []syllablePart
}

var vowelSets = [][]rune{
	{'a', 'e', 'i', 'o', 'u'},
	{'a', 'i', 'u'},
	{'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I'},
	{'a', 'e', 'i', 'o', 'u', 'U'},
	{'a', 'i', 'u', 'A', 'I'},
	{'e', 'o', 'u'},
	{'a', 'e', 'i', 'o', 'u', 'A', 'O', 'U'},
}

var consonantSets = [][]rune{
	{'p', 't', 'k', 'm', 'n', 'l', 's'},
	{'p', 't', 'k', 'b', 'd', 'g', 'm', 'n', 'l', 'r', 's', 'ʃ', 'z', 'ʒ', 'ʧ'},
	{'p', 't', 'k', 'm', 'n', 'h'},
	{'h', 'k', 'l', 'm', 'n', 'p', 'w'},
	{'p', 't', 'k', 'q', 'v', 's', 'g', 'r', 'm', 'n', 'ŋ', 'l', 'j'},
	{'t', 'k', 's', 'ʃ', 'd', 'b', 'q', 'ɣ', 'x', 'm', 'n', 'l', 'r', 'w', 'j'},
	{'t', 'k', 'd', 'g', 'm', 'n', 's', 'ʃ'},
	{'p', 't', 'k', 'b', 'd', 'g', 'm', 'n', 's', 'z', 'ʒ', 'ʧ', 'h', 'j', 'w'},
}

var sibilantSets = [][]rune{
	{'s'},
	{'s', 'ʃ'},
	{'s', 'ʃ', 'f'},
}

var liquidSets = [][]rune{
	{'r'},
	{'l'},
	{'r', 'l'},
	{'w', 'j'},
	{'r', 'l', 'w', 'j'},
}

var finalSets = [][]rune{
	{'m', 'n'},
	{'s', 'k'},
	{'m', 'n', 'ŋ'},
	{'s', 'ʃ', 'z', 'ʒ'},
}

var syllableStructures = [][]syllablePart{
	{{classConsonant, true}, {classVowel, true}, {classConsonant, true}},
	{{classConsonant, true}, {classVowel, true}, {classVowel, false}, {classConsonant, true}},
	{{classConsonant, true}, {classVowel, true}, {classVowel, true}, {classConsonant, false}},
	{{classConsonant, true}, {classVowel, true}, {classConsonant, false}},
	{{classConsonant, true}, {classVowel, true}},
	{{classVowel, true}, {classConsonant, true}},
	{{classConsonant, true}, {classVowel, true}, {classFinal, true}},
	{{classConsonant, false}, {classVowel, true}, {classConsonant, true}},
	{{classConsonant, true}, {classVowel, true}, {classFinal, false}},
	{{classConsonant, true}, {classLiquid, false}, {classVowel, true}, {classConsonant, true}},
	{{classConsonant, true}, {classLiquid, false}, {classVowel, true}, {classFinal, true}},
	{{classSibilant, false}, {classConsonant, true}, {classVowel, true}, {classConsonant, true}},
	{{classSibilant, false}, {classConsonant, true}, {classVowel, true}, {classFinal, true}},
	{{classSibilant, false}, {classConsonant, true}, {classVowel, true}, {classConsonant, false}},
	{{classConsonant, false}, {classVowel, true}, {classFinal, true}},
	{{classConsonant, false}, {classVowel, true}, {classConsonant, false}},
	{{classConsonant, false}, {classVowel, true}, {classFinal, false}},
	{{classConsonant, false}, {classLiquid, false}, {classVowel, true}, {classConsonant, true}},
	{{classConsonant, true}, {classVowel, true}, {classLiquid, false}, {classConsonant, false}},
	{{classConsonant, false}, {classVowel, true}, {classLiquid, false}, {classConsonant, true}},
	{{classConsonant, true}, {classVowel, true}, {classSibilant, false}, {classVowel, true}},
	{{classConsonant, false}, {classVowel, true}, {classLiquid, true}, {classConsonant, false}},
}

var surnameStructures = [][]namePart{
	{{nameName, true}, {nameGeneric, false}, {nameName, false}},
	{{nameParticle, false}, {nameParticle, true}, {nameRegion, true}},
	{{nameGeneric, true}, {nameGeneric, true}, {nameName, true}},
	{{nameGeneric, true}, {nameParticle, false}, {nameGeneric, true}},
	{{nameGeneric, true}, {nameSpace, true}, {nameRegion, true}},
	{{nameGeneric, true}, {nameSpace, false}, {nameGeneric, true}, {nameSpace, false}, {nameName, true}},
	{{nameGeneric, true}, {nameSpace, false}, {nameRegion, true}},
}

// NewLanguage rolls a random language from the given source.
func NewLanguage(rng *rand.Rand) *Language {
	l := &Language{
		vowels:     pickSet(rng, vowelSets),
		consonants: pickSet(rng, consonantSets),
		sibilants:  pickSet(rng, sibilantSets),
		liquids:    pickSet(rng, liquidSets),
		finals:     pickSet(rng, finalSets),
		syllable:   syllableStructures[rng.Intn(len(syllableStructures))],
		surname:    surnameStructures[rng.Intn(len(surnameStructures))],
	}
	rng.Shuffle(len(l.vowels), func(i, j int) { l.vowels[i], l.vowels[j] = l.vowels[j], l.vowels[i] })
	rng.Shuffle(len(l.consonants), func(i, j int) { l.consonants[i], l.consonants[j] = l.consonants[j], l.consonants[i] })

	l.spelling = map[rune]string{
		'ʃ': "sh", 'ʒ': "zh", 'ʧ': "ch", 'ŋ': "ng", 'j': "j", 'x': "kh", 'ɣ': "gh",
	}
	switch rng.Intn(3) {
	case 0:
		l.spelling['ʃ'] = "sch"
		l.spelling['ʧ'] = "tsch"
		l.spelling['x'] = "ch"
	case 1:
		l.spelling['ʃ'] = "ch"
		l.spelling['ʒ'] = "j"
		l.spelling['ʧ'] = "tch"
		l.spelling['j'] = "y"
	default:
		l.spelling['ʃ'] = "x"
		l.spelling['ʧ'] = "q"
		l.spelling['j'] = "y"
	}
	accented := [5][2]rune{{'A', 'a'}, {'E', 'e'}, {'I', 'i'}, {'O', 'o'}, {'U', 'u'}}
	accents := [][5]string{
		{"á", "é", "í", "ó", "ú"},
		{"ä", "ë", "ï", "ö", "ü"},
		{"â", "ê", "y", "ô", "w"},
		{"au", "ei", "ie", "ou", "oo"},
		{"aa", "ee", "ii", "oo", "uu"},
	}
	row := accents[rng.Intn(len(accents))]
	for i, pair := range accented {
		l.spelling[pair[0]] = row[i]
	}

	l.perGivenMin = 1 + rng.Intn(2)
	l.perGivenMax = l.perGivenMin + 1 + rng.Intn(3)
	l.capParticle = rng.Float64()
	l.joiner = []string{" ", " ", " ", " ", "-", "-", "'"}[rng.Intn(7)]

	return l
}

func pickSet(rng *rand.Rand, sets [][]rune) []rune {
	src := sets[rng.Intn(len(sets))]
	out := make([]rune, len(src))
	copy(out, src)
	return out
}

// GenPersonal generates a "Given Surname" personal name, growing the
// language's morpheme pools as a side effect.
func (l *Language) GenPersonal(rng *rand.Rand) string {
	given := ""
	for {
		var sb strings.Builder
		glen := l.perGivenMin + rng.Intn(l.perGivenMax-l.perGivenMin+1)
		nidx := rng.Intn(glen)
		for i := 0; i < glen; i++ {
			if i == nidx {
				sb.WriteString(l.pick(rng, &l.nameMorphemes, ""))
			} else {
				sb.WriteString(l.pick(rng, &l.genericMorphemes, ""))
			}
		}
		given = sb.String()
		if len(given) <= maxGivenLen {
			break
		}
	}
	given = capitaliseFirst(given)

	var surname strings.Builder
	particle := false
	first := true
	for _, part := range l.surname {
		if !part.required && rng.Intn(2) == 0 {
			continue
		}
		if particle {
			surname.WriteString(l.joiner)
		}
		switch part.kind {
		case nameGeneric, nameRegion, nameName:
			particle = false
			pool := &l.genericMorphemes
			if part.kind == nameRegion {
				pool = &l.regionMorphemes
			} else if part.kind == nameName {
				pool = &l.nameMorphemes
			}
			morph := l.pick(rng, pool, "")
			if first {
				first = false
				morph = capitaliseFirst(morph)
			}
			surname.WriteString(morph)
		case nameParticle:
			if !first && !particle {
				surname.WriteString(l.joiner)
			}
			particle = true
			mode := ""
			if rng.Float64() < l.capParticle {
				mode = "cap"
			}
			surname.WriteString(l.pick(rng, &l.particleMorphemes, mode))
		case nameSpace:
			first = true
			if l.joiner == "'" {
				surname.WriteString("-")
			} else {
				surname.WriteString(l.joiner)
			}
		}
	}

	return given + " " + surname.String()
}

// pick draws from a morpheme pool, sometimes minting a fresh morpheme and
// adding it to the pool. The mode "cap" capitalises freshly minted entries.
func (l *Language) pick(rng *rand.Rand, pool *[]string, mode string) string {
	i := rng.Intn(len(*pool) + extraMorphemes)
	if i < len(*pool) {
		return (*pool)[i]
	}
	morph, ok := l.genMorpheme(rng)
	if !ok {
		return (*pool)[rng.Intn(len(*pool))]
	}
	if mode == "cap" {
		morph = capitaliseFirst(morph)
	}
	*pool = append(*pool, morph)
	return morph
}

// genMorpheme mints a syllable not yet present in any pool. Gives up after
// 1000 tries, which only happens when the phoneme space is exhausted.
func (l *Language) genMorpheme(rng *rand.Rand) (string, bool) {
	for try := 0; try < 1000; try++ {
		var sb strings.Builder
		for _, part := range l.syllable {
			if !part.required && rng.Intn(2) == 0 {
				continue
			}
			var set []rune
			switch part.class {
			case classVowel:
				set = l.vowels
			case classConsonant:
				set = l.consonants
			case classSibilant:
				set = l.sibilants
			case classLiquid:
				set = l.liquids
			case classFinal:
				set = l.finals
			}
			ch := set[int(rng.Float64()*float64(len(set)))]
			if sp, ok := l.spelling[ch]; ok {
				sb.WriteString(sp)
			} else {
				sb.WriteRune(ch)
			}
		}
		morph := sb.String()
		if morph == "" || l.known(morph) {
			continue
		}
		return morph, true
	}
	return "", false
}

func (l *Language) known(morph string) bool {
	for _, pool := range [][]string{l.genericMorphemes, l.regionMorphemes, l.nameMorphemes, l.particleMorphemes} {
		for _, m := range pool {
			if m == morph {
				return true
			}
		}
	}
	return false
}

func capitaliseFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

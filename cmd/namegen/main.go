// Command namegen rolls characters from a seed: a naming language, then a
// batch of townsfolk with their life histories. Handy for eyeballing what a
// given seed's town will sound like.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/talgya/townsim/internal/entropy"
	"github.com/talgya/townsim/internal/heatmap"
	"github.com/talgya/townsim/internal/mobs"
)

func main() {
	var (
		seedFlag  = flag.Int64("seed", 0, "seed (0 = random)")
		count     = flag.Int("n", 10, "number of characters to roll")
		kind      = flag.String("kind", "adult", "adult, child, or adventurer")
		namesOnly = flag.Bool("names", false, "print names only, no histories")
	)
	flag.Parse()

	gen, ok := map[string]func(*rand.Rand, *mobs.Language) *mobs.Mobile{
		"adult":      mobs.GenAdult,
		"child":      mobs.GenChild,
		"adventurer": mobs.GenAdventurer,
	}[*kind]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown kind %q\n", *kind)
		os.Exit(1)
	}

	seed := entropy.MasterSeed(*seedFlag)
	fmt.Printf("seed %d\n\n", seed)

	lang := mobs.NewLanguage(rand.New(rand.NewSource(entropy.SubSeed(seed, entropy.StreamLanguage))))
	rng := rand.New(rand.NewSource(entropy.SubSeed(seed, entropy.StreamMobs)))

	for i := 0; i < *count; i++ {
		m := gen(rng, lang)
		if *namesOnly {
			fmt.Println(m.Name)
			continue
		}
		fmt.Printf("%s, %d\n", m.Name, m.Age)
		for _, ev := range m.History {
			fmt.Printf("  age %2d  %s\n", ev.Age, ev.Detail)
		}
		for _, tag := range heatmap.AllTags() {
			if d := m.Desire(tag); d > 0 {
				fmt.Printf("  wants %s %.2f\n", tag, d)
			}
		}
		fmt.Println()
	}
}

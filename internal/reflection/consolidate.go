package reflection

import (
	"sort"

	"go.uber.org/zap"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/lexicon"
	"github.com/baihaki00/sentra-sub000/internal/vectorizer"
)

// ConsolidatePatterns links paraphrases. Logged inputs are grouped by intent
// and vectorized against a TF-IDF model fitted on every input in the window;
// each pair within a group whose cosine similarity exceeds
// SimilarityThreshold gets an ALIAS edge from the longer phrase to the
// shorter one, unless that edge already exists. It returns the number of
// edges created.
func (e *Engine) ConsolidatePatterns() int {
	groups := make(map[string][]string)
	seen := make(map[string]struct{})
	var corpus []string
	for _, in := range e.Interactions() {
		if in.Intent == "" || in.Intent == schemas.IntentUnknown {
			continue
		}
		phrase := lexicon.Normalize(in.Input)
		if phrase == "" {
			continue
		}
		key := in.Intent + "\x00" + phrase
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		groups[in.Intent] = append(groups[in.Intent], phrase)
		corpus = append(corpus, phrase)
	}
	if len(corpus) < 2 {
		return 0
	}

	vec := vectorizer.New()
	vec.Fit(corpus)

	intents := make([]string, 0, len(groups))
	for intent := range groups {
		intents = append(intents, intent)
	}
	sort.Strings(intents)

	created := 0
	for _, intent := range intents {
		phrases := groups[intent]
		vectors := make([][]float64, len(phrases))
		for i, p := range phrases {
			vectors[i] = vec.Transform(p)
		}
		for i := 0; i < len(phrases); i++ {
			for j := i + 1; j < len(phrases); j++ {
				if phrases[i] == phrases[j] {
					continue
				}
				sim := vectorizer.CosineSimilarity(vectors[i], vectors[j])
				if sim <= e.cfg.SimilarityThreshold {
					continue
				}
				long, short := orderBySize(phrases[i], phrases[j])
				if e.graph.HasEdge(long, schemas.RelAlias, short) {
					continue
				}
				e.graph.AddEdge(long, short, schemas.RelAlias, schemas.DefaultEdgeWeight)
				created++
				e.log.Debug("Paraphrases linked",
					zap.String("intent", intent),
					zap.String("from", long),
					zap.String("to", short),
					zap.Float64("similarity", sim))
			}
		}
	}
	return created
}

// orderBySize returns the longer phrase first. Equal lengths are ordered so
// the lexically smaller phrase is the target.
func orderBySize(a, b string) (long, short string) {
	if len(a) > len(b) || (len(a) == len(b) && a > b) {
		return a, b
	}
	return b, a
}

// PruneRedundantPhrases walks every group of phrases connected by ALIAS
// edges, keeps the shortest as canonical and flags the others Redundant.
// Nodes are soft-deleted only; protected nodes are never flagged. It returns
// the number of nodes flagged.
func (e *Engine) PruneRedundantPhrases() int {
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		p, ok := parent[x]
		if !ok {
			parent[x] = x
			return x
		}
		if p == x {
			return x
		}
		root := find(p)
		parent[x] = root
		return root
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for _, edge := range e.graph.EdgesOfKind(schemas.RelAlias) {
		union(edge.From, edge.To)
	}

	components := make(map[string][]string)
	for id := range parent {
		root := find(id)
		components[root] = append(components[root], id)
	}

	flagged := 0
	for _, members := range components {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			if len(members[i]) != len(members[j]) {
				return len(members[i]) < len(members[j])
			}
			return members[i] < members[j]
		})
		e.graph.UpdateNode(members[0], func(n *schemas.Node) { n.Redundant = false })
		for _, id := range members[1:] {
			e.graph.UpdateNode(id, func(n *schemas.Node) {
				if n.Protected() || n.Redundant {
					return
				}
				n.Redundant = true
				flagged++
			})
		}
	}
	return flagged
}

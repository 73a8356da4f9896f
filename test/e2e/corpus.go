// Package e2e runs the full pipeline (chunk, embed, index, catalog, search)
// against a generated paper corpus.
package e2e

import (
	"fmt"

	"github.com/hyperjump/tsunagu/internal/models"
)

// PaperDoc is one corpus paper. Its first paragraph is a unique signature
// used as the query in search test cases: the mock embedder is exact-text
// deterministic, so querying with the signature must surface that chunk.
type PaperDoc struct {
	ID    string
	Title string
	Year  int
	Text  string
}

// QueryCase is a search query and the paper that must come back for it.
type QueryCase struct {
	Description string
	Query       string
	PaperID     string
}

// Corpus holds generated papers and their query test cases.
type Corpus struct {
	Papers []PaperDoc
	Cases  []QueryCase
}

type topic struct {
	slug  string
	title string
	body  string
}

var topics = []topic{
	{"dropout-regularization", "Dropout as a Regularizer", "Randomly disabling units during training prevents co-adaptation of feature detectors."},
	{"attention-transformers", "Attention Is Enough", "Self-attention layers relate every token to every other token in a single step."},
	{"batch-normalization", "Batch Normalization Revisited", "Normalizing layer inputs stabilizes training and permits larger learning rates."},
	{"residual-learning", "Deep Residual Learning", "Shortcut connections let gradients flow through very deep networks."},
	{"word-embeddings", "Distributed Word Representations", "Words with similar contexts receive nearby vectors in the embedding space."},
	{"contrastive-pretraining", "Contrastive Pretraining of Encoders", "Pulling positive pairs together and pushing negatives apart yields transferable features."},
	{"knowledge-distillation", "Distilling Model Knowledge", "A small student network learns from the soft targets of a large teacher model."},
	{"curriculum-learning", "Curriculum Ordering of Examples", "Presenting easy examples before hard ones speeds up convergence."},
	{"adversarial-examples", "Fragility to Adversarial Noise", "Imperceptible input perturbations can flip classifier predictions."},
	{"graph-networks", "Message Passing on Graphs", "Node states are updated by aggregating messages from their neighbors."},
	{"federated-learning", "Learning Without Centralizing Data", "Clients train locally and share only model updates with the server."},
	{"sparse-retrieval", "Sparse Lexical Retrieval", "Inverted indexes over expanded terms remain competitive with dense retrievers."},
	{"dense-retrieval", "Dense Passage Retrieval", "Dual encoders map queries and passages into a shared vector space."},
	{"prompt-tuning", "Tuning Prompts Not Weights", "Learning a short soft prompt adapts a frozen language model to new tasks."},
	{"mixture-of-experts", "Sparsely Gated Experts", "Routing each token to a few experts scales capacity without scaling compute."},
}

// BuildCorpus generates variantsPerTopic papers per topic. Every paper's
// signature paragraph embeds its own id, so signatures never collide.
func BuildCorpus(variantsPerTopic int) *Corpus {
	if variantsPerTopic <= 0 {
		variantsPerTopic = 2
	}
	c := &Corpus{}
	for _, tp := range topics {
		for v := 0; v < variantsPerTopic; v++ {
			id := fmt.Sprintf("%s-%02d", tp.slug, v)
			sig := fmt.Sprintf("Study %s reports: %s", id, tp.body)
			c.Papers = append(c.Papers, PaperDoc{
				ID:    id,
				Title: fmt.Sprintf("%s (Part %d)", tp.title, v+1),
				Year:  2015 + v,
				Text:  sig + "\n\n" + tp.body + " Further experiments confirm the effect across benchmarks.",
			})
			c.Cases = append(c.Cases, QueryCase{
				Description: id,
				Query:       sig,
				PaperID:     id,
			})
		}
	}
	return c
}

// Meta returns the catalog metadata for a corpus paper.
func (p PaperDoc) Meta() models.PaperMeta {
	return models.PaperMeta{Title: p.Title, Year: p.Year}
}

// Package repair restores documents whose embeddings drifted out of shape:
// mixed vector dimensions are partitioned and the minority detached for
// re-embedding, and whole documents can be re-embedded under a new model.
//
// Repairs never delete Embedding records. Detaching only clears the
// segment's reference; the content-addressed rows stay available to any
// other document sharing them.
package repair

package memory

// NewDemoRepository returns a repository with a small catalog, so the API is
// usable without a database.
func NewDemoRepository() *Repository {
	r := NewRepository()
	for id, name := range map[int64]string{1: "Feijoada", 2: "Moqueca", 3: "Pão de queijo", 4: "Pastel de feira"} {
		r.AddMenuItem(id, name)
	}
	for id, name := range map[int64]string{1: "Feijão tropeiro", 2: "Arroz carreteiro", 3: "Escondidinho"} {
		r.AddDish(id, name)
	}
	return r
}

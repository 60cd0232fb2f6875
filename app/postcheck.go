package app

// PostCheck implements the post-analysis check (spec.md §4.2): reject the
// program if a resource owned by init — one listed in init's `resources`,
// which init consumes by value — is also listed in some task's
// `resources`. Such a resource must not leak into a task's resource list.
func PostCheck(m *Model, an *Analysis) []*CompileError {
	var errs []*CompileError

	initOwned := make(map[string]bool)
	for _, name := range m.Init.Resources {
		initOwned[name] = true
	}
	if len(initOwned) == 0 {
		return nil
	}

	for _, t := range m.Tasks {
		for _, r := range t.Resources {
			if initOwned[r] {
				errs = append(errs, errf(Span{}, "task %q references resource %q, which is owned by init", t.Name, r))
			}
		}
	}

	return errs
}

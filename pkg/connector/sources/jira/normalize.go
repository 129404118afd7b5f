package jira

// PostProcessFunc reshapes one raw record before emission. Returning nil
// suppresses the record. Hooks must be idempotent: a record that already
// carries the target shape passes through unchanged, so replayed or
// hand-repaired records normalize safely.
type PostProcessFunc func(record map[string]interface{}, ctx Context) map[string]interface{}

// chainPostProcess applies hooks in order, stopping if one suppresses the
// record.
func chainPostProcess(fns ...PostProcessFunc) PostProcessFunc {
	return func(record map[string]interface{}, ctx Context) map[string]interface{} {
		for _, fn := range fns {
			record = fn(record, ctx)
			if record == nil {
				return nil
			}
		}
		return record
	}
}

// hoistField moves container[field] to a top-level record field. Absent or
// non-object containers leave the record untouched; an existing top-level
// value is not overwritten, so a record hoisted once passes through again
// unchanged.
func hoistField(container, field string) PostProcessFunc {
	return func(record map[string]interface{}, _ Context) map[string]interface{} {
		nested, ok := record[container].(map[string]interface{})
		if !ok {
			return record
		}
		value, ok := nested[field]
		if !ok {
			return record
		}
		if _, present := record[field]; !present {
			record[field] = value
		}
		delete(nested, field)
		return record
	}
}

// injectContext stamps a context value onto the record under field, making
// the parent linkage queryable downstream. Missing context keys leave the
// record untouched.
func injectContext(field, key string) PostProcessFunc {
	return func(record map[string]interface{}, ctx Context) map[string]interface{} {
		value, ok := ctx[key]
		if !ok {
			return record
		}
		record[field] = value
		return record
	}
}

// splitObjectField replaces a composite identifier object with its named
// members at the top level. A scalar or absent field is left alone, so
// already-flattened records pass through unchanged.
func splitObjectField(field string, keys ...string) PostProcessFunc {
	return func(record map[string]interface{}, _ Context) map[string]interface{} {
		nested, ok := record[field].(map[string]interface{})
		if !ok {
			return record
		}
		for _, key := range keys {
			if value, present := nested[key]; present {
				record[key] = value
			}
		}
		delete(record, field)
		return record
	}
}

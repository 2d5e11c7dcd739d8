package logging

func logParamsToZapParams(keys map[ExtraKey]any) []any {
	params := make([]any, 0, len(keys))

	for k, v := range keys {
		params = append(params, string(k))
		params = append(params, v)
	}

	return params
}

func logParamsToZeroParams(keys map[ExtraKey]any) map[string]any {
	params := map[string]any{}

	for k, v := range keys {
		params[string(k)] = v
	}

	return params
}

func prepareLogKeys(extra map[ExtraKey]any, cat Category, sub SubCategory) map[ExtraKey]any {
	if extra == nil {
		extra = make(map[ExtraKey]any, 2)
	}

	extra["Category"] = cat
	extra["SubCategory"] = sub

	return extra
}

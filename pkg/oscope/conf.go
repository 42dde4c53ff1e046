package oscope

// Conf loads YAML from disk and builds a Runtime in one step.
func Conf(path string, opts ...RuntimeOption) (*Runtime, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewRuntime(cfg, opts...)
}

package logg

const (
	Layer     = "layer"
	Operation = "operation"
	RunID     = "run_id"
	Phase     = "phase"
	Scene     = "scene"
	Role      = "role"
	Handle    = "handle"
	URL       = "url"
	Driver    = "driver"
	Addr      = "addr"
)

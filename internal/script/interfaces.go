package script

type Loader interface {
	Load(path string) (Script, error)
}

package shader

// KernelLibraryOption is a functional option used to configure a KernelLibrary during construction.
type KernelLibraryOption func(*kernelLibrary)

// WithDirectory sets the directory inside the file system that holds the kernel sources.
//
// Parameters:
//   - dir: the slash-separated directory path
//
// Returns:
//   - KernelLibraryOption: a function that sets the directory
func WithDirectory(dir string) KernelLibraryOption {
	return func(l *kernelLibrary) {
		l.dir = dir
	}
}

// WithPreProcessor sets the pre-processor used to resolve includes and defines.
//
// Parameters:
//   - pp: the pre-processor
//
// Returns:
//   - KernelLibraryOption: a function that sets the pre-processor
func WithPreProcessor(pp PreProcessor) KernelLibraryOption {
	return func(l *kernelLibrary) {
		l.pp = pp
	}
}

// WithValidation compiles every loaded kernel with naga before it is handed to the device.
//
// Returns:
//   - KernelLibraryOption: a function that enables validation
func WithValidation() KernelLibraryOption {
	return func(l *kernelLibrary) {
		l.validate = true
	}
}

// SPDX-License-Identifier: MPL-2.0

// cudup is a version manager for the CUDA toolkit and cuDNN, installing the
// official redistributable archives under ~/.cudup and switching between them.
package main

func main() {
	Execute()
}

package engine

// singleReadSize is a hint for how much to read from the kernel per
// recv(2) call; Recv loops until EAGAIN regardless, so this only bounds
// the size of each individual syscall and temporary copy.
const singleReadSize = 4096

// defaultBacklog is used when a Config doesn't specify one.
const defaultBacklog = 128

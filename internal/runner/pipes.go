package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// pipes owns the child's standard streams. The child ends are plain files
// so exec starts no copy goroutines of its own; copying happens here, where
// its errors are visible regardless of the exit status.
type pipes struct {
	inR, inW   *os.File // nil when the command has no input
	outR, outW *os.File
	errR, errW *os.File

	input   chan error // result of the stdin copy
	outputs chan error // results of the stdout and stderr copies
}

func openPipes(cmd *exec.Cmd, stdin io.Reader) (*pipes, error) {
	p := &pipes{input: make(chan error, 1), outputs: make(chan error, 2)}
	var err error
	if p.outR, p.outW, err = os.Pipe(); err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	if p.errR, p.errW, err = os.Pipe(); err != nil {
		p.close()
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}
	if stdin != nil {
		if p.inR, p.inW, err = os.Pipe(); err != nil {
			p.close()
			return nil, fmt.Errorf("creating stdin pipe: %w", err)
		}
		cmd.Stdin = p.inR
	}
	cmd.Stdout = p.outW
	cmd.Stderr = p.errW
	return p, nil
}

// start releases the child ends, which the started process now holds, and
// begins copying.
func (p *pipes) start(stdin io.Reader, stdout, stderr io.Writer) {
	closeFiles(p.inR, p.outW, p.errW)
	if p.inW != nil {
		go func() { p.input <- copyInput(p.inW, stdin) }()
	} else {
		p.input <- nil
	}
	go func() { p.outputs <- copyOutput(stdout, p.outR, "stdout") }()
	go func() { p.outputs <- copyOutput(stderr, p.errR, "stderr") }()
}

// wait collects the copies once the process has exited. If they have not
// finished after delay, the parent ends are force-closed and the result
// wraps exec.ErrWaitDelay. A stdin reader blocked in Read is abandoned.
func (p *pipes) wait(delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	var errs []error
	inputDone := false
	for outputs := 0; outputs < 2 || !inputDone; {
		select {
		case err := <-p.outputs:
			outputs++
			errs = append(errs, err)
		case err := <-p.input:
			inputDone = true
			errs = append(errs, err)
		case <-timer.C:
			closeFiles(p.inW, p.outR, p.errR)
			for ; outputs < 2; outputs++ {
				<-p.outputs
			}
			return errors.Join(append(errs, exec.ErrWaitDelay)...)
		}
	}
	return errors.Join(errs...)
}

func (p *pipes) close() {
	closeFiles(p.inR, p.inW, p.outR, p.outW, p.errR, p.errW)
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

func copyOutput(dst io.Writer, src *os.File, name string) error {
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	return nil
}

// copyInput writes src to the child and closes the pipe so the child sees
// EOF. A failing write means the child closed its stdin; the rest of the
// input is discarded, as exec does.
func copyInput(dst *os.File, src io.Reader) error {
	defer dst.Close()
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}
}

// Package pipeline turns a chain of linked stages into cooperating workers
// and drives it one step at a time.
//
// Each stage runs in its own goroutine, started by the Runner that adopted
// it. A Runner joins a parent to one child with two conduits: an unbuffered
// channel carrying datagrams downstream and an unbounded queue carrying
// acknowledgements upstream. Because the downstream channel has no buffer, a
// producer can never get more than one item ahead of its consumer, and a
// slow consumer holds up every caller above it, up to Pipeline.Step.
//
// A Pipeline owns the Runner of the head stage only. Every other stage is
// owned by the producer it was linked to:
//
//	src := text.NewTestSrc("Test\n")
//	if err := src.Link(stage.SlotMain, text.NewStdoutLog(os.Stdout)); err != nil {
//	    return err
//	}
//
//	p, err := pipeline.New(src)
//	if err != nil {
//	    return err
//	}
//	defer p.Teardown()
//
//	if err := p.Init(); err != nil {
//	    return err
//	}
//	for {
//	    outcome, err := p.Step()
//	    if err != nil || outcome == pipeline.Exhausted {
//	        break
//	    }
//	}
//
// Shutdown is cooperative. Teardown sends Terminate to the head and joins
// it; each stage releases its own children after its loop returns, so the
// chain shuts down from the head towards the tails.
package pipeline

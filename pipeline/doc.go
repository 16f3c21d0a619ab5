/*
Package pipeline assembles the ordered chain of request stages that sits in
front of the business router.

A Stage inspects an Exchange and either forwards it or terminates the chain
after writing a response:

	b, err := pipeline.NewBuilder(pipeline.WithCatalog(catalog), pipeline.WithLogger(logger))
	if err != nil {
	    return err
	}
	chain, err := b.
	    Use(pipeline.NewCorrelationStage()).
	    Use(authenticator).
	    Build(router)

The stage list is fixed by Build. Stages implementing Toggle with Enabled()
false are left out at that point. Stages run strictly in order on the request
goroutine, so a stage only ever sees the exchange after every earlier stage
has finished with it.
*/
package pipeline

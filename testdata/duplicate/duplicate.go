// Package duplicate tries every way an importer could get a second
// instance. None of it may type-check; see TestDuplicationDoesNotCompile.
package duplicate

import "github.com/rayo1uo/singleton"

func copyThroughDeref() {
	v := *singleton.GetInstance() // want "cannot indirect"
	_ = v
}

func copyThroughVariable() {
	p := singleton.GetInstance()
	v := *p // want "cannot indirect"
	_ = v
}

func declare() {
	var s singleton.singleton // want "not exported"
	_ = s
}

func allocate() {
	_ = new(singleton.singleton) // want "not exported"
}

func literal() {
	_ = singleton.singleton{} // want "not exported"
}

func assertConcrete() {
	_ = singleton.GetInstance().(*singleton.singleton) // want "not exported"
}

// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package bind

import (
	"fmt"
)

type greeter struct {
	name string
}

func ExampleBind() {
	greet := func(g *greeter, greeting string, punctuation string) string {
		return fmt.Sprintf("%s, %s%s", greeting, g.name, punctuation)
	}

	b, err := Bind(greet, &greeter{name: "world"}, "hello")
	if err != nil {
		fmt.Println(err)
		return
	}

	out := b.Call("!")
	fmt.Println(out[0])
	// Output: hello, world!
}

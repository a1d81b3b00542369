// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package deferred

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

func ExampleNew() {
	d := New[string](ProducerFunc[string](func(resolve func(string), reject func(error)) {
		resolve("ok")
	}))

	d.Then(func(s string) (string, error) {
		return strings.ToUpper(s), nil
	})

	v, err := d.Await(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(v)
	// Output: OK
}

func ExampleNew_catch() {
	d := New[string](ProducerFunc[string](func(resolve func(string), reject func(error)) {
		reject(errors.New("the producer failed"))
	}))

	d.Catch(func(err error) {
		fmt.Println(err)
	})

	// Output: the producer failed
}

func ExampleTimeout() {
	d := New[string](
		ProducerFunc[string](func(resolve func(string), reject func(error)) {
			// never settles
		}),
		Timeout(10*time.Millisecond),
	)

	_, err := d.Await(context.Background())
	fmt.Println(err)
	// Output: deferred: no completion after 10ms
}

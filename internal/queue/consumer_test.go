package queue

import (
    "testing"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

func TestMergeDeliveriesClosesWhenSourcesClose(t *testing.T) {
    confirmed := make(chan amqp.Delivery, 1)
    decided := make(chan amqp.Delivery, 1)
    done := make(chan struct{})
    defer close(done)

    merged := mergeDeliveries(map[string]<-chan amqp.Delivery{
        BookingConfirmedQueue:     confirmed,
        AuthorizationDecidedQueue: decided,
    }, done)

    confirmed <- amqp.Delivery{Body: []byte("{}")}
    select {
    case d := <-merged:
        if d.RoutingKey != BookingConfirmedQueue {
            t.Fatalf("routing key = %q, want %q", d.RoutingKey, BookingConfirmedQueue)
        }
    case <-time.After(time.Second):
        t.Fatal("delivery never forwarded")
    }

    // A broker disconnect closes every consume channel; the merged channel
    // must close too so the consume loop returns and reconnects.
    close(confirmed)
    close(decided)
    select {
    case _, ok := <-merged:
        if ok {
            t.Fatal("unexpected delivery after sources closed")
        }
    case <-time.After(time.Second):
        t.Fatal("merged channel did not close after sources closed")
    }
}

func TestMergeDeliveriesReleasesForwardersOnDone(t *testing.T) {
    in := make(chan amqp.Delivery)
    done := make(chan struct{})

    merged := mergeDeliveries(map[string]<-chan amqp.Delivery{
        RenewalAlertQueue: in,
    }, done)

    // The forwarder picks this up and blocks sending to merged, which has
    // no receiver yet. Closing done must let it exit so merged closes.
    in <- amqp.Delivery{Body: []byte("{}")}
    close(done)
    close(in)

    // The in-flight delivery may still be forwarded; after it, merged must
    // close rather than block.
    deadline := time.After(time.Second)
    for {
        select {
        case _, ok := <-merged:
            if !ok {
                return
            }
        case <-deadline:
            t.Fatal("forwarder still blocked after done closed")
        }
    }
}

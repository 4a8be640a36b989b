// Package collab defines the collaborator contracts consumed by the chat
// processing pipeline.
//
// The pipeline itself owns no network protocol, store, or push transport;
// everything with an outside effect is reached through one of these narrow
// interfaces. Implementations live elsewhere (storage/chatstore,
// transport/natsbroadcast, worldlink, airesponder, chatcommands) or in the
// surrounding gateway, and are handed to the pipeline at construction time
// rather than resolved from any ambient scope.
package collab

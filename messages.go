// Copyright 2026 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package modsettings

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Messages persisted in shared stores. The file is built at init time and
// corresponds to:
//
//	syntax = "proto3";
//	package modsettings.v1;
//	import "google/protobuf/timestamp.proto";
//
//	message CacheEntry {
//	  string settings_id = 1;
//	  string version = 2;
//	  bytes data = 3;
//	  google.protobuf.Timestamp poll_time = 4;
//	}
//
//	message LeaseHolder {
//	  string hostname = 1;
//	  bytes ip_address = 2;
//	  bytes mac_address = 3;
//	  uint64 pid = 4;
//	  uint64 start_nanos = 5;
//	}
//
//	message LeaseEntry {
//	  oneof holder {
//	    LeaseHolder computed = 1;
//	    bytes user_provided = 2;
//	  }
//	}
//
//nolint:gochecknoglobals
var (
	storedMessages        = newStoredMessages()
	cacheEntryDescriptor  = storedMessages.ByName("CacheEntry")
	leaseHolderDescriptor = storedMessages.ByName("LeaseHolder")
	leaseEntryDescriptor  = storedMessages.ByName("LeaseEntry")
)

func newStoredMessages() protoreflect.MessageDescriptors {
	field := func(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:   proto.String(name),
			Number: proto.Int32(number),
			Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:   typ.Enum(),
		}
	}
	messageField := func(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
		f := field(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
		f.TypeName = proto.String(typeName)
		return f
	}
	holderField := func(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
		f.OneofIndex = proto.Int32(0)
		return f
	}
	file := &descriptorpb.FileDescriptorProto{
		Name:       proto.String("modsettings/v1/modsettings.proto"),
		Package:    proto.String("modsettings.v1"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"google/protobuf/timestamp.proto"},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("CacheEntry"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("settings_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("version", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("data", 3, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
					messageField("poll_time", 4, ".google.protobuf.Timestamp"),
				},
			},
			{
				Name: proto.String("LeaseHolder"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("hostname", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("ip_address", 2, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
					field("mac_address", 3, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
					field("pid", 4, descriptorpb.FieldDescriptorProto_TYPE_UINT64),
					field("start_nanos", 5, descriptorpb.FieldDescriptorProto_TYPE_UINT64),
				},
			},
			{
				Name: proto.String("LeaseEntry"),
				Field: []*descriptorpb.FieldDescriptorProto{
					holderField(messageField("computed", 1, ".modsettings.v1.LeaseHolder")),
					holderField(field("user_provided", 2, descriptorpb.FieldDescriptorProto_TYPE_BYTES)),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{
					{Name: proto.String("holder")},
				},
			},
		},
	}
	fileDescriptor, err := protodesc.NewFile(file, protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("invalid modsettings.v1 descriptors: %v", err))
	}
	return fileDescriptor.Messages()
}

